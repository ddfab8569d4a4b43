package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	cmd := rootCmd
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("root --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "manifestgate") {
		t.Error("expected 'manifestgate' in help output")
	}
	if !strings.Contains(out, "serve") {
		t.Error("expected 'serve' subcommand in help output")
	}
	if !strings.Contains(out, "check") {
		t.Error("expected 'check' subcommand in help output")
	}
	if !strings.Contains(out, "review") {
		t.Error("expected 'review' subcommand in help output")
	}
	if !strings.Contains(out, "validate") {
		t.Error("expected 'validate' subcommand in help output")
	}
	if !strings.Contains(out, "rules") {
		t.Error("expected 'rules' subcommand in help output")
	}
	if !strings.Contains(out, "apply") {
		t.Error("expected 'apply' subcommand in help output")
	}
	if !strings.Contains(out, "policy") {
		t.Error("expected 'policy' subcommand in help output")
	}
}

func TestVersionCommand(t *testing.T) {
	SetBuildInfo("test-v0.0.1", "abc123", "2026-01-01")
	defer SetBuildInfo("dev", "none", "unknown")

	ver, _, err := rootCmd.Find([]string{"version"})
	if err != nil {
		t.Fatalf("failed to find 'version' command: %v", err)
	}
	if ver.Use != "version" {
		t.Errorf("expected Use='version', got %q", ver.Use)
	}
	if version != "test-v0.0.1" {
		t.Errorf("expected version 'test-v0.0.1', got %q", version)
	}
}

func TestRootCommand_LogFlags(t *testing.T) {
	cmd := rootCmd

	logLevel := cmd.PersistentFlags().Lookup("log-level")
	if logLevel == nil {
		t.Fatal("expected --log-level persistent flag")
	}
	if logLevel.DefValue != "info" {
		t.Errorf("expected default log-level 'info', got %q", logLevel.DefValue)
	}

	logFormat := cmd.PersistentFlags().Lookup("log-format")
	if logFormat == nil {
		t.Fatal("expected --log-format persistent flag")
	}
	if logFormat.DefValue != "text" {
		t.Errorf("expected default log-format 'text', got %q", logFormat.DefValue)
	}
}

func TestCheckCommand_Flags(t *testing.T) {
	check, _, err := rootCmd.Find([]string{"check"})
	if err != nil {
		t.Fatalf("failed to find 'check' command: %v", err)
	}

	expectedFlags := []string{"policy", "max-severity", "output", "quiet", "now"}
	for _, name := range expectedFlags {
		if check.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag on 'check' command", name)
		}
	}

	if check.Flags().ShorthandLookup("o") == nil {
		t.Error("expected -o shorthand for --output")
	}
	if check.Flags().ShorthandLookup("q") == nil {
		t.Error("expected -q shorthand for --quiet")
	}

	maxSev := check.Flags().Lookup("max-severity")
	if maxSev.DefValue != "critical" {
		t.Errorf("expected default max-severity 'critical', got %q", maxSev.DefValue)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	serve, _, err := rootCmd.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("failed to find 'serve' command: %v", err)
	}

	expectedFlags := []string{"config", "listen", "policy", "kubeconfig", "context", "history-db", "warn-only", "cluster-policies"}
	for _, name := range expectedFlags {
		if serve.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag on 'serve' command", name)
		}
	}
}
