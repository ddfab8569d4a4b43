package cli

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kubegov/manifestgate/internal/monitor"
	"github.com/kubegov/manifestgate/internal/policy"
	"github.com/kubegov/manifestgate/internal/telemetry"
)

var reviewCmd = &cobra.Command{
	Use:   "review <path>...",
	Short: "Browse policy violations in an interactive TUI",
	Long: `Evaluate YAML manifest files or directories against a governance policy
and browse the violations in an interactive table with per-violation
remediation details.

When stdout is not a terminal, prints a plain-text table instead.

Exit codes:
  0  No violations
  1  Warnings exist
  2  Critical violations
  3  Config or input errors`,
	Example: `  manifestgate review deploy/ --policy policy.yaml`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().String("policy", "policy.yaml", "Path to YAML policy file")
	reviewCmd.Flags().Bool("plain", false, "Force plain-text output (no TUI)")
}

func runReview(cmd *cobra.Command, args []string) error {
	policyPath, _ := cmd.Flags().GetString("policy") //nolint:errcheck // flag registered above
	cfg, err := policy.LoadFromFile(policyPath)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	tracer, _, _ := telemetry.InitTracer(cmd.Context(), "", version) //nolint:errcheck // empty endpoint never errors

	engine := policy.NewEngine(cfg)
	snap := evaluatePaths(cmd.Context(), engine, tracer, args, time.Now())
	exitCode := monitor.ExitCode(snap)

	plain, _ := cmd.Flags().GetBool("plain") //nolint:errcheck // flag registered above
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(monitor.PlainText(snap))
	} else {
		model := monitor.NewModel(snap)
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("running TUI: %w", err)
		}
	}

	for source, msg := range snap.Errors {
		cmd.PrintErrf("error: %s: %s\n", source, msg)
	}

	if exitCode != 0 {
		os.Exit(exitCode) //nolint:gocritic // exitAfterDefer — nonzero-exit path bypasses defers intentionally
	}
	return nil
}
