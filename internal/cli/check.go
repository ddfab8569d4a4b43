package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/kubegov/manifestgate/internal/manifest"
	"github.com/kubegov/manifestgate/internal/monitor"
	"github.com/kubegov/manifestgate/internal/policy"
	"github.com/kubegov/manifestgate/internal/store"
	"github.com/kubegov/manifestgate/internal/telemetry"
)

var checkCmd = &cobra.Command{
	Use:   "check <path>...",
	Short: "CI/CD gate — evaluate manifest files and exit non-zero on violations",
	Long: `Evaluate YAML manifest files or directories against a governance policy,
then exit with a code based on the worst violation. Designed for CI/CD
pipelines — no TUI, just parse → evaluate → exit code.

Exit codes:
  0  No violations (or below --max-severity threshold)
  1  Warnings exist at or above --max-severity threshold
  2  Critical violations found
  3  Config or input errors`,
	Example: `  # Gate a manifest directory
  manifestgate check deploy/ --policy policy.yaml

  # Fail on warnings too
  manifestgate check deploy/ --policy policy.yaml --max-severity warn

  # JSON output for pipeline parsing
  manifestgate check deploy/ --policy policy.yaml --output json

  # Quiet mode — exit code only
  manifestgate check deploy/ --policy policy.yaml --quiet

  # Evaluate exceptions as of a fixed time
  manifestgate check deploy/ --policy policy.yaml --now 2026-06-01T00:00:00Z`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("policy", "policy.yaml", "Path to YAML policy file")
	checkCmd.Flags().String("max-severity", "critical", "Fail threshold: info, warn, or critical")
	checkCmd.Flags().StringP("output", "o", "", "Output format: json, table (default: table)")
	checkCmd.Flags().BoolP("quiet", "q", false, "Suppress output, exit code only")
	checkCmd.Flags().String("now", "", "Evaluate exception expiry as of this RFC3339 time (default: current time)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	policyPath, _ := cmd.Flags().GetString("policy") //nolint:errcheck // flag registered above
	cfg, err := policy.LoadFromFile(policyPath)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	maxSevStr, _ := cmd.Flags().GetString("max-severity") //nolint:errcheck // flag registered above
	maxSev, err := parseSeverity(maxSevStr)
	if err != nil {
		return err
	}

	now := time.Now()
	if nowStr, _ := cmd.Flags().GetString("now"); nowStr != "" { //nolint:errcheck // flag registered above
		now, err = time.Parse(time.RFC3339, nowStr)
		if err != nil {
			return fmt.Errorf("invalid --now value %q: %w", nowStr, err)
		}
	}

	otelEndpoint, _ := cmd.Flags().GetString("otel-endpoint") //nolint:errcheck // flag registered on root
	tracer, tracerShutdown, tracerErr := telemetry.InitTracer(cmd.Context(), otelEndpoint, version)
	if tracerErr != nil {
		slog.Warn("initializing tracer, continuing without tracing", "err", tracerErr)
		tracer, tracerShutdown, _ = telemetry.InitTracer(cmd.Context(), "", version)
	}

	engine := policy.NewEngine(cfg)
	snap := evaluatePaths(cmd.Context(), engine, tracer, args, now)
	slog.Info("check complete", "results", len(snap.Results),
		"denied", len(snap.Denied()), "errors", len(snap.Errors))

	exitCode := checkExitCode(snap, maxSev)

	outputFlag, _ := cmd.Flags().GetString("output") //nolint:errcheck // flag registered above
	quiet, _ := cmd.Flags().GetBool("quiet")         //nolint:errcheck // flag registered above

	if outputFlag != "" && outputFlag != "json" && outputFlag != "table" {
		return fmt.Errorf("invalid --output value %q: must be json or table", outputFlag)
	}

	if !quiet {
		switch outputFlag {
		case "json":
			if err := monitor.WriteJSON(os.Stdout, snap, exitCode); err != nil {
				return fmt.Errorf("writing JSON output: %w", err)
			}
		default:
			fmt.Print(monitor.PlainText(snap))
		}
	}

	// Flush spans before a possible os.Exit, which skips defers
	tracerShutdown(context.Background()) //nolint:errcheck // best-effort flush

	if exitCode != 0 {
		os.Exit(exitCode) //nolint:gocritic // exitAfterDefer — nonzero-exit path bypasses defers intentionally
	}
	return nil
}

// evaluatePaths parses every manifest under the given files and directories
// and evaluates each one in its own span. Unreadable or unparsable files
// are recorded as errors rather than aborting the batch.
func evaluatePaths(ctx context.Context, engine *policy.Engine, tracer trace.Tracer, paths []string, now time.Time) store.Snapshot {
	snap := store.Snapshot{At: now, Errors: map[string]string{}}

	for _, file := range collectFiles(paths, snap.Errors) {
		manifests, err := manifest.ParseFile(file)
		if err != nil {
			snap.Errors[file] = err.Error()
			continue
		}
		for i := range manifests {
			m := &manifests[i]
			_, span := telemetry.StartEvaluation(ctx, tracer, m.Kind, m.Metadata.Namespace, m.Metadata.Name)
			res := engine.Result(m, file, now)
			telemetry.RecordDecision(span, res.Decision)
			span.End()
			snap.Results = append(snap.Results, res)
		}
	}

	if len(snap.Errors) == 0 {
		snap.Errors = nil
	}
	return snap
}

// collectFiles expands directories into the YAML files they contain.
func collectFiles(paths []string, errs map[string]string) []string {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			errs[p] = err.Error()
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		walkErr := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if isYAML(path) {
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			errs[p] = walkErr.Error()
		}
	}
	return files
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// checkExitCode returns an exit code based on violations and a severity
// threshold. Violations below maxSev are reported but do not fail the gate.
func checkExitCode(snap store.Snapshot, maxSev store.Severity) int {
	if len(snap.Errors) > 0 {
		return 3
	}

	code := 0
	for i := range snap.Results {
		for _, v := range snap.Results[i].Decision.Violations {
			if v.Code == store.CodeInputError {
				return 3
			}
			if !meetsThreshold(v.Severity, maxSev) {
				continue
			}
			if v.Severity == store.SeverityCritical {
				code = 2
			} else if code < 1 {
				code = 1
			}
		}
	}
	return code
}

// meetsThreshold returns true if the violation severity is at or above the threshold.
func meetsThreshold(sev, threshold store.Severity) bool {
	return sevRank(sev) >= sevRank(threshold)
}

func sevRank(s store.Severity) int {
	switch s {
	case store.SeverityCritical:
		return 3
	case store.SeverityWarn:
		return 2
	case store.SeverityInfo:
		return 1
	default:
		return 0
	}
}

func parseSeverity(s string) (store.Severity, error) {
	switch s {
	case "info":
		return store.SeverityInfo, nil
	case "warn":
		return store.SeverityWarn, nil
	case "critical":
		return store.SeverityCritical, nil
	default:
		return "", fmt.Errorf("invalid --max-severity %q: must be info, warn, or critical", s)
	}
}
