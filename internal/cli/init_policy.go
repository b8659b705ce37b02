package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dotnope/dotnope/internal/policy"
)

var initForce bool

func init() {
	rootCmd.AddCommand(initPolicyCmd)
	initPolicyCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing policy file")
}

var initPolicyCmd = &cobra.Command{
	Use:   "init-policy",
	Short: "Write a commented starter policy to ~/.dotnope/dotnope.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := rootConfig
		if path == "" {
			path = policy.DefaultConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(policy.StarterYAML()), 0600); err != nil {
			return fmt.Errorf("write policy: %w", err)
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}
