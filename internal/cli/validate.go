package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubegov/manifestgate/internal/config"
	"github.com/kubegov/manifestgate/internal/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate <policy-file>",
	Short: "Validate a policy file",
	Long: `Load and validate a manifestgate YAML policy file without evaluating
anything.

Checks for YAML syntax errors, invalid naming patterns, bad length limits,
malformed denylist globs, and exceptions without a host. Exits 0 on
success, 1 on validation failure.`,
	Example: `  manifestgate validate policy.yaml && echo "Policy OK"

  # Validate the runtime config instead
  manifestgate validate --config /etc/manifestgate/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("config", "", "Validate a runtime config file instead of a policy file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config") //nolint:errcheck // flag registered above

	if cfgPath == "" && len(args) == 0 {
		return fmt.Errorf("provide a policy file argument or --config")
	}

	if cfgPath != "" {
		if _, err := config.Load(cfgPath); err != nil {
			cmd.PrintErrln(err)
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return fmt.Errorf("validation failed")
		}
		cmd.Println("config OK")
		return nil
	}

	if _, err := policy.LoadFromFile(args[0]); err != nil {
		cmd.PrintErrln(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("validation failed")
	}
	cmd.Println("policy OK")
	return nil
}
