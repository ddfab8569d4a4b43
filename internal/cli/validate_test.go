package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validPolicyYAML = `naming:
  Service:
    pattern: "[a-z][a-z0-9-]*[a-z0-9]"
    maxLength: 63
    requiredLabels: ["team"]
externalName:
  validation:
    requireFQDN: true
    forbidWildcard: true
    forbidLocalhost: true
    forbidIPLiteral: true
    maxLength: 253
  allowlist:
    - db.prod.example.com
  denylist:
    - "*.untrusted.io"
  owners:
    defaultOwner: platform-team
`

func writeTempPolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing policy file: %v", err)
	}
	return path
}

func executeValidate(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd := rootCmd
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"validate"}, args...))
	err := cmd.Execute()
	// Reset silencing so later tests see normal error reporting
	validateCmd.SilenceUsage = false
	validateCmd.SilenceErrors = false
	return buf.String(), err
}

func TestValidateCommand_ValidPolicy(t *testing.T) {
	path := writeTempPolicy(t, validPolicyYAML)

	out, err := executeValidate(path)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "policy OK") {
		t.Errorf("expected 'policy OK' in output, got %q", out)
	}
}

func TestValidateCommand_BadPattern(t *testing.T) {
	path := writeTempPolicy(t, `naming:
  Service:
    pattern: "[unclosed"
    maxLength: 63
`)

	out, err := executeValidate(path)
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if !strings.Contains(out, "Service") {
		t.Errorf("expected kind name in error output, got %q", out)
	}
}

func TestValidateCommand_MalformedYAML(t *testing.T) {
	path := writeTempPolicy(t, "naming: [not: a: map\n")

	_, err := executeValidate(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := executeValidate(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateCommand_NoArgs(t *testing.T) {
	_, err := executeValidate()
	if err == nil {
		t.Fatal("expected error when neither argument nor --config given")
	}
}

func TestValidateCommand_Config(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := `listenAddr: ":8443"
policyPath: policy.yaml
`
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	out, err := executeValidate("--config", path)
	if err != nil {
		t.Fatalf("validate --config failed: %v", err)
	}
	if !strings.Contains(out, "config OK") {
		t.Errorf("expected 'config OK' in output, got %q", out)
	}

	// Reset the flag for later tests sharing rootCmd
	if err := validateCmd.Flags().Set("config", ""); err != nil {
		t.Fatalf("resetting flag: %v", err)
	}
}

func TestValidateCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := `listenAddr: ""
`
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	_, err := executeValidate("--config", path)
	if err == nil {
		t.Fatal("expected error for config with empty listen address")
	}

	if err := validateCmd.Flags().Set("config", ""); err != nil {
		t.Fatalf("resetting flag: %v", err)
	}
}
