package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotnope/dotnope/internal/audit"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the hash-chained access log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <log>",
	Short: "Verify the hash chain of an access log",
	Long:  "Exit 0 when the chain is intact, 1 when any entry was altered.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := audit.Verify(args[0])
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		if !result.Intact {
			os.Exit(1)
		}
		return nil
	},
}
