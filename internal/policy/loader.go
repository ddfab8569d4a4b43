package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
)

var governancePolicyGVR = schema.GroupVersionResource{
	Group:    "manifestgate.dev",
	Version:  "v1alpha1",
	Resource: "governancepolicies",
}

// CRDInstalled checks if the GovernancePolicy CRD is registered in the cluster.
func CRDInstalled(disc discovery.DiscoveryInterface) bool {
	_, err := disc.ServerResourcesForGroupVersion("manifestgate.dev/v1alpha1")
	return err == nil
}

// ClusterPolicy is a GovernancePolicy custom resource with its parsed spec.
type ClusterPolicy struct {
	Name string
	Spec Config
}

// LoadClusterPolicies lists all GovernancePolicy CRs from the cluster,
// sorted by name. Returns nil, nil if the CRD is not installed.
func LoadClusterPolicies(ctx context.Context, disc discovery.DiscoveryInterface, dynClient dynamic.Interface) ([]ClusterPolicy, error) {
	if !CRDInstalled(disc) {
		return nil, nil
	}

	list, err := dynClient.Resource(governancePolicyGVR).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing governance policies: %w", err)
	}

	policies := make([]ClusterPolicy, 0, len(list.Items))
	for i := range list.Items {
		obj := list.Items[i]
		spec, ok := obj.Object["spec"].(map[string]interface{})
		if !ok {
			policies = append(policies, ClusterPolicy{Name: obj.GetName()})
			continue
		}

		cfg, err := parseSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", obj.GetName(), err)
		}
		policies = append(policies, ClusterPolicy{Name: obj.GetName(), Spec: *cfg})
	}

	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })
	return policies, nil
}

// parseSpec converts an unstructured CR spec into a Config. The CR spec has
// the same shape as the policy file, so it goes through the same decoding.
func parseSpec(spec map[string]interface{}) (*Config, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encoding spec: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding spec: %w", err)
	}
	return &cfg, nil
}

// Merge overlays cluster policies onto a base config, in order. A policy's
// naming rules are merged per kind; a non-empty externalName section
// replaces the base section wholesale so precedence lists never interleave
// across sources. The result is compiled and ready for evaluation.
func Merge(base *Config, policies []ClusterPolicy) (*Config, error) {
	merged := Config{
		Naming: map[string]NamingRule{},
	}
	if base != nil {
		for kind, rule := range base.Naming {
			merged.Naming[kind] = rule
		}
		merged.ExternalName = base.ExternalName
	}

	for i := range policies {
		spec := &policies[i].Spec
		for kind, rule := range spec.Naming {
			merged.Naming[kind] = rule
		}
		if !emptyExternalName(&spec.ExternalName) {
			merged.ExternalName = spec.ExternalName
		}
	}

	if err := merged.Compile(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func emptyExternalName(en *ExternalNameConfig) bool {
	return len(en.Allowlist) == 0 && len(en.Denylist) == 0 &&
		len(en.Exceptions) == 0 && en.Validation == (ExternalNameChecks{}) &&
		en.Owners.DefaultOwner == "" && !en.Owners.Required && len(en.Owners.LabelKeys) == 0
}
