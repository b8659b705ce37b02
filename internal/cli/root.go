package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotnope/dotnope/internal/integrity"
	"github.com/dotnope/dotnope/internal/launcher"
)

var (
	rootConfig  string
	rootLog     string
	rootCheck   bool
	rootStatus  bool
	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dotnope [flags] <script|-- command> [args...]",
	Short: "Per-package environment-variable firewall",
	Long: "Launches a child process under the environment firewall: the\n" +
		"interposer library is preloaded, the policy allow-set is serialized\n" +
		"into DOTNOPE_POLICY, and the child's exit status is forwarded.\n" +
		"Scripts ending in .js/.mjs/.cjs run under node.",
	Args:         cobra.ArbitraryArgs,
	RunE:         runRoot,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := integrity.VerifySelf(); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(78) // EX_CONFIG
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Path to package.json or dotnope.yaml (default: ~/.dotnope/dotnope.yaml)")
	rootCmd.Flags().StringVar(&rootLog, "log", "", "Interposer decision log file (DOTNOPE_LOG)")
	rootCmd.Flags().BoolVar(&rootCheck, "check", false, "Locate the interposer library and exit 0/1")
	rootCmd.Flags().BoolVar(&rootStatus, "status", false, "Print native-plane status and exit")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print launch details")
}

func runRoot(cmd *cobra.Command, args []string) error {
	l, err := launcher.New(launcher.Config{
		ConfigPath: rootConfig,
		LogPath:    rootLog,
		Verbose:    rootVerbose,
	})
	if err != nil {
		return err
	}

	if rootCheck {
		if l.LibraryPath() == "" {
			fmt.Fprintln(os.Stderr, "dotnope: interposer library not found")
			os.Exit(1)
		}
		fmt.Println(l.LibraryPath())
		return nil
	}

	if rootStatus {
		out, err := json.MarshalIndent(l.CurrentStatus(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(args) == 0 {
		return cmd.Help()
	}

	// A leading "--" in cobra already stripped; the first positional is
	// either a script path or the command itself.
	argv := launcher.ScriptCommand(args[0], args[1:])

	code, err := l.Run(cmd.Context(), argv)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
