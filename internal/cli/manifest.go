package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotnope/dotnope/internal/integrity"
)

var (
	manifestPath string
	manifestAlgo string
)

func init() {
	rootCmd.AddCommand(manifestCmd)
	manifestCmd.AddCommand(manifestGenerateCmd, manifestVerifyCmd)

	manifestCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "Manifest path (default: <file>.manifest.json)")
	manifestGenerateCmd.Flags().StringVar(&manifestAlgo, "algorithm", integrity.AlgoSHA256, "Hash algorithm (sha256|blake3)")
}

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Attest and verify native components",
}

var manifestGenerateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Write an attestation manifest for a native file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := integrity.WriteManifest(args[0], manifestPath, manifestAlgo)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(m, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var manifestVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify a native file against its manifest",
	Long: "Exit 0 when the file verifies, 1 on hash or size mismatch,\n" +
		"0 with a warning when no manifest exists.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := integrity.VerifyFile(args[0], manifestPath)
		if err != nil {
			return err
		}
		switch result.Outcome {
		case integrity.OutcomeVerified:
			fmt.Printf("%s: verified\n", args[0])
		case integrity.OutcomeWarning:
			fmt.Fprintf(os.Stderr, "%s: no manifest (unattested)\n", args[0])
		case integrity.OutcomeRefused:
			fmt.Fprintf(os.Stderr, "%v\n", result.Err)
			os.Exit(1)
		}
		return nil
	},
}
