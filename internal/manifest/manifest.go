// Package manifest models Kubernetes-style resource manifests for evaluation.
package manifest

// Metadata is the subset of object metadata the governance rules read.
type Metadata struct {
	Name      string            `json:"name"`
	Namespace string            `json:"namespace,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Manifest is a single resource document. Spec is kept opaque; typed
// accessors below pull out the fields the evaluators need.
type Manifest struct {
	Kind     string                 `json:"kind"`
	Metadata Metadata               `json:"metadata"`
	Spec     map[string]interface{} `json:"spec,omitempty"`
}

// ServiceType returns spec.type for Service manifests, or "" if absent.
func (m *Manifest) ServiceType() string {
	return specString(m.Spec, "type")
}

// ExternalName returns spec.externalName, or "" if absent.
func (m *Manifest) ExternalName() string {
	return specString(m.Spec, "externalName")
}

// IsExternalNameService reports whether the manifest is a Service of type
// ExternalName and therefore subject to domain governance.
func (m *Manifest) IsExternalNameService() bool {
	return m.Kind == "Service" && m.ServiceType() == "ExternalName"
}

func specString(spec map[string]interface{}, key string) string {
	if spec == nil {
		return ""
	}
	val, ok := spec[key].(string)
	if !ok {
		return ""
	}
	return val
}
