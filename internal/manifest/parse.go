package manifest

import (
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// ParseAll decodes a possibly multi-document YAML stream into manifests.
// Empty documents and documents without a kind are skipped.
func ParseAll(data []byte) ([]Manifest, error) {
	var manifests []Manifest
	for i, doc := range splitDocuments(string(data)) {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		var m Manifest
		if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
			return nil, fmt.Errorf("parsing document %d: %w", i+1, err)
		}
		if m.Kind == "" {
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// ParseObject decodes a single JSON or YAML object, as delivered in an
// AdmissionReview request.
func ParseObject(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing object: %w", err)
	}
	if m.Kind == "" {
		return nil, fmt.Errorf("object has no kind")
	}
	return &m, nil
}

// ParseFile reads and decodes a YAML manifest file.
func ParseFile(path string) ([]Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided manifest path
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}
	manifests, err := ParseAll(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return manifests, nil
}

// splitDocuments splits a YAML stream on document separators. A separator
// only counts at the start of a line, so "---" inside a string is safe.
func splitDocuments(data string) []string {
	lines := strings.Split(data, "\n")
	var docs []string
	var current []string
	for _, line := range lines {
		if line == "---" || strings.HasPrefix(line, "--- ") {
			docs = append(docs, strings.Join(current, "\n"))
			current = current[:0]
			continue
		}
		current = append(current, line)
	}
	docs = append(docs, strings.Join(current, "\n"))
	return docs
}
