package policy

import "embed"

//go:embed manifests/governancepolicy-crd.yaml
var crdFS embed.FS

// CRDManifest returns the raw YAML for the GovernancePolicy CRD.
func CRDManifest() ([]byte, error) {
	return crdFS.ReadFile("manifests/governancepolicy-crd.yaml")
}
