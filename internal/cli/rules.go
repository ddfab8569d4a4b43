package cli

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Generate PrometheusRule YAML for manifestgate alerts",
	Long: `Output a static PrometheusRule YAML manifest with alert rules for
denied admissions, critical policy violations, and policy reload failures.

No cluster connection required. The output is valid
monitoring.coreos.com/v1 PrometheusRule YAML suitable for kubectl apply.`,
	Example: `  # Generate with defaults
  manifestgate rules

  # Custom metadata
  manifestgate rules --name manifestgate-alerts --namespace monitoring

  # Add extra labels for PrometheusRule selection
  manifestgate rules --labels 'prometheus=kube,role=alert-rules'

  # Apply directly
  manifestgate rules | kubectl apply -f -`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().String("name", "manifestgate-alerts", "PrometheusRule metadata.name")
	rulesCmd.Flags().String("namespace", "", "PrometheusRule metadata.namespace")
	rulesCmd.Flags().String("labels", "", "Extra labels (comma-separated key=value pairs)")
	rulesCmd.Flags().Float64("denial-rate", 5, "Denied admissions per 5m that trigger a warning")
}

type rulesData struct {
	Labels     map[string]string
	Name       string
	Namespace  string
	DenialRate float64
}

func runRules(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")               //nolint:errcheck // flag registered above
	ns, _ := cmd.Flags().GetString("namespace")            //nolint:errcheck // flag registered above
	labelsStr, _ := cmd.Flags().GetString("labels")        //nolint:errcheck // flag registered above
	denialRate, _ := cmd.Flags().GetFloat64("denial-rate") //nolint:errcheck // flag registered above

	labels := make(map[string]string)
	if labelsStr != "" {
		for _, pair := range strings.Split(labelsStr, ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) == 2 {
				labels[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
	}

	data := rulesData{
		Name:       name,
		Namespace:  ns,
		Labels:     labels,
		DenialRate: denialRate,
	}

	tmpl, err := template.New("prometheusrule").Parse(prometheusRuleTemplate)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	return tmpl.Execute(cmd.OutOrStdout(), data)
}

const prometheusRuleTemplate = `apiVersion: monitoring.coreos.com/v1
kind: PrometheusRule
metadata:
  name: {{ .Name }}
{{- if .Namespace }}
  namespace: {{ .Namespace }}
{{- end }}
  labels:
    app.kubernetes.io/name: manifestgate
{{- range $k, $v := .Labels }}
    {{ $k }}: {{ $v }}
{{- end }}
spec:
  groups:
    - name: manifestgate.rules
      rules:
        - alert: ManifestgateDenialRateHigh
          expr: increase(manifestgate_evaluations_total{outcome="denied"}[5m]) > {{ .DenialRate }}
          for: 10m
          labels:
            severity: warning
          annotations:
            summary: "High admission denial rate for kind {{"{{"}} $labels.kind {{"}}"}}"
            description: "manifestgate denied more than {{ .DenialRate }} admissions of kind {{"{{"}} $labels.kind {{"}}"}} in the last 5 minutes. A policy change or a misbehaving deployment pipeline is likely."
        - alert: ManifestgateCriticalViolations
          expr: increase(manifestgate_violations_total{severity="critical"}[5m]) > 0
          for: 5m
          labels:
            severity: critical
          annotations:
            summary: "Critical policy violations: {{"{{"}} $labels.code {{"}}"}}"
            description: "manifestgate is emitting critical violations with code {{"{{"}} $labels.code {{"}}"}}. These deny admission of the offending manifests."
        - alert: ManifestgatePolicyReloadFailing
          expr: increase(manifestgate_policy_reloads_total{result="error"}[15m]) > 0
          for: 15m
          labels:
            severity: warning
          annotations:
            summary: "Policy reloads are failing"
            description: "manifestgate has failed to reload its policy for 15 minutes and is still enforcing the previously loaded policy. Check the policy file for syntax or compile errors."
        - alert: ManifestgatePolicyStale
          expr: time() - manifestgate_policy_loaded_timestamp > 86400
          for: 30m
          labels:
            severity: warning
          annotations:
            summary: "Loaded policy is older than 24 hours"
            description: "The last successful policy load was more than 24 hours ago. If reloads are expected, check the reload timer and the policy source."
        - alert: ManifestgateEvaluationSlow
          expr: histogram_quantile(0.99, rate(manifestgate_evaluation_duration_seconds_bucket[5m])) > 0.1
          for: 10m
          labels:
            severity: warning
          annotations:
            summary: "Slow policy evaluations"
            description: "The 99th percentile evaluation latency exceeds 100ms. Admission latency adds directly to kubectl apply and controller reconcile times."
`
