package monitor

import (
	"strings"
	"testing"
	"time"

	"github.com/kubegov/manifestgate/internal/store"
)

func TestNewModel_EmptySnapshot(t *testing.T) {
	snap := store.Snapshot{At: time.Now()}
	m := NewModel(snap)

	if len(m.rows) != 0 {
		t.Errorf("expected 0 rows, got %d", len(m.rows))
	}
}

func TestFlattenSnapshot_SortsBySeverity(t *testing.T) {
	snap := store.Snapshot{
		At: time.Now(),
		Results: []store.Result{
			resultWith(
				store.Violation{Code: store.CodeExtnNotFQDN, Severity: store.SeverityWarn},
				store.Violation{Code: store.CodeExtnDenylist, Severity: store.SeverityCritical},
			),
			resultWith(store.Violation{Code: store.CodeLabelMissing, Severity: store.SeverityWarn}),
		},
	}
	rows := flattenSnapshot(snap)

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].V.Severity != store.SeverityCritical {
		t.Errorf("expected critical first, got %s", rows[0].V.Severity)
	}
	if rows[1].V.Severity != store.SeverityWarn || rows[2].V.Severity != store.SeverityWarn {
		t.Error("expected warns after critical")
	}
	// Stable: warns keep resource order.
	if rows[1].V.Code != store.CodeExtnNotFQDN {
		t.Errorf("expected EXTN_NOT_FQDN second, got %s", rows[1].V.Code)
	}
}

func TestViewDoesNotPanic(t *testing.T) {
	snap := store.Snapshot{
		At: time.Now(),
		Results: []store.Result{
			{
				Kind: "Service", Namespace: "prod", Name: "legacy-db", Source: "deploy/db.yaml",
				Decision: store.Decision{Violations: []store.Violation{
					{
						Code:     store.CodeExtnDenylist,
						Severity: store.SeverityCritical,
						Message:  "externalName \"evil.untrusted.io\" matches denylist pattern \"*.untrusted.io\"",
						Owner:    "payments",
						Fix:      "remove the denylisted host or request a policy exception",
					},
				}},
			},
		},
	}

	m := NewModel(snap)
	output := m.View()
	if output == "" {
		t.Error("View() returned empty string")
	}
	if !strings.Contains(output, "EXTN_IN_DENYLIST") {
		t.Errorf("View() should show the violation code, got:\n%s", output)
	}
}

func TestPlainText(t *testing.T) {
	snap := store.Snapshot{
		At: time.Now(),
		Results: []store.Result{
			{
				Kind: "Service", Namespace: "kube-system", Name: "proxy-svc",
				Decision: store.Decision{Violations: []store.Violation{
					{Code: store.CodeExtnLocalhost, Severity: store.SeverityCritical, Message: "externalName resolves to localhost"},
				}},
			},
		},
	}

	out := PlainText(snap)
	if !strings.Contains(out, "CODE") {
		t.Error("PlainText should contain header row")
	}
	if !strings.Contains(out, "kube-system/proxy-svc") {
		t.Errorf("PlainText should contain resource location, got:\n%s", out)
	}
	if !strings.Contains(out, "EXTN_LOCALHOST") {
		t.Errorf("PlainText should contain violation code, got:\n%s", out)
	}
}

func TestPlainText_Empty(t *testing.T) {
	snap := store.Snapshot{At: time.Now()}
	out := PlainText(snap)
	if out != "No violations." {
		t.Errorf("PlainText(empty) = %q, want %q", out, "No violations.")
	}
}

func TestApplyFilter(t *testing.T) {
	snap := store.Snapshot{
		At: time.Now(),
		Results: []store.Result{
			{
				Kind: "Service", Namespace: "prod", Name: "api",
				Decision: store.Decision{Violations: []store.Violation{
					{Code: store.CodeNamePattern, Severity: store.SeverityWarn, Message: "name does not match pattern"},
				}},
			},
			{
				Kind: "ConfigMap", Namespace: "staging", Name: "settings",
				Decision: store.Decision{Violations: []store.Violation{
					{Code: store.CodeLabelMissing, Severity: store.SeverityWarn, Message: "label team missing"},
				}},
			},
		},
	}

	m := NewModel(snap)
	m.searchInput.SetValue("configmap")
	m.applyFilter()

	if len(m.rows) != 1 {
		t.Fatalf("expected 1 filtered row, got %d", len(m.rows))
	}
	if m.rows[0].Kind != "ConfigMap" {
		t.Errorf("filtered kind = %q, want ConfigMap", m.rows[0].Kind)
	}

	m.searchInput.SetValue("")
	m.applyFilter()
	if len(m.rows) != 2 {
		t.Errorf("expected filter cleared to restore 2 rows, got %d", len(m.rows))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		want string
		max  int
	}{
		{"short", "short", 10},
		{"this is a long string", "this is...", 10},
		{"exact10chr", "exact10chr", 10},
	}
	for _, tt := range tests {
		got := truncate(tt.s, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
	}
}
