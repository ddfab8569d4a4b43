package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/kubegov/manifestgate/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "List active GovernancePolicy resources",
	Long:  `List all GovernancePolicy custom resources in the cluster.`,
	RunE:  runPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.Flags().String("kubeconfig", "", "Path to kubeconfig")
	policyCmd.Flags().String("context", "", "Kubernetes context to use")
}

func runPolicy(cmd *cobra.Command, _ []string) error {
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig") //nolint:errcheck // flag registered above
	kubeCtx, _ := cmd.Flags().GetString("context")       //nolint:errcheck // flag registered above

	restCfg, err := buildRESTConfig(kubeconfig, kubeCtx)
	if err != nil {
		return fmt.Errorf("building kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating kubernetes client: %w", err)
	}

	dynClient, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating dynamic client: %w", err)
	}

	return listPolicies(cmd.OutOrStdout(), clientset.Discovery(), dynClient)
}

func listPolicies(w io.Writer, disc discovery.DiscoveryInterface, dynClient dynamic.Interface) error {
	policies, err := policy.LoadClusterPolicies(context.Background(), disc, dynClient)
	if err != nil {
		return fmt.Errorf("loading policies: %w", err)
	}
	if policies == nil {
		fmt.Fprintln(w, "GovernancePolicy CRD not installed. Run 'manifestgate apply' first.") //nolint:errcheck // best-effort output
		return nil
	}
	if len(policies) == 0 {
		fmt.Fprintln(w, "No GovernancePolicy resources found.") //nolint:errcheck // best-effort output
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKINDS\tALLOWLIST\tDENYLIST\tEXCEPTIONS") //nolint:errcheck // best-effort output
	for i := range policies {
		spec := &policies[i].Spec
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", //nolint:errcheck // best-effort output
			policies[i].Name,
			len(spec.Naming),
			len(spec.ExternalName.Allowlist),
			len(spec.ExternalName.Denylist),
			len(spec.ExternalName.Exceptions))
	}
	return tw.Flush()
}
