package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const multiDoc = `apiVersion: v1
kind: Service
metadata:
  name: payments-db
  namespace: payments
  labels:
    team: payments
spec:
  type: ExternalName
  externalName: db.prod.example.com
---
apiVersion: apps/v1
kind: Deployment
metadata:
  name: payments-api
  namespace: payments
spec:
  replicas: 2
---
# comment-only document
`

func TestParseAll_MultiDocument(t *testing.T) {
	manifests, err := ParseAll([]byte(multiDoc))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("manifests = %d, want 2", len(manifests))
	}

	svc := manifests[0]
	if svc.Kind != "Service" {
		t.Errorf("kind = %q, want Service", svc.Kind)
	}
	if svc.Metadata.Name != "payments-db" {
		t.Errorf("name = %q, want payments-db", svc.Metadata.Name)
	}
	if svc.Metadata.Labels["team"] != "payments" {
		t.Errorf("team label = %q, want payments", svc.Metadata.Labels["team"])
	}
	if !svc.IsExternalNameService() {
		t.Error("expected ExternalName service predicate to hold")
	}
	if svc.ExternalName() != "db.prod.example.com" {
		t.Errorf("externalName = %q, want db.prod.example.com", svc.ExternalName())
	}

	if manifests[1].IsExternalNameService() {
		t.Error("Deployment must not match ExternalName predicate")
	}
}

func TestParseAll_ClusterIPService(t *testing.T) {
	doc := `kind: Service
metadata:
  name: api
spec:
  type: ClusterIP
`
	manifests, err := ParseAll([]byte(doc))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(manifests) != 1 {
		t.Fatalf("manifests = %d, want 1", len(manifests))
	}
	if manifests[0].IsExternalNameService() {
		t.Error("ClusterIP service must not match ExternalName predicate")
	}
	if manifests[0].ExternalName() != "" {
		t.Errorf("externalName = %q, want empty", manifests[0].ExternalName())
	}
}

func TestParseAll_BadYAML(t *testing.T) {
	_, err := ParseAll([]byte("kind: Service\nmetadata: [not a map"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.yaml")
	if err := os.WriteFile(path, []byte(multiDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	manifests, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(manifests) != 2 {
		t.Errorf("manifests = %d, want 2", len(manifests))
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := ParseFile("/nonexistent/file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
