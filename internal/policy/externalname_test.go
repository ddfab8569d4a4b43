package policy

import (
	"testing"
	"time"

	"github.com/kubegov/manifestgate/internal/manifest"
	"github.com/kubegov/manifestgate/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func extnConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		ExternalName: ExternalNameConfig{
			Validation: ExternalNameChecks{
				RequireFQDN:      true,
				ForbidWildcard:   true,
				ForbidBareDomain: true,
				ForbidDotless:    true,
				ForbidLocalhost:  true,
				ForbidIPLiteral:  true,
				IDNANormalize:    true,
				MaxLength:        253,
			},
			Allowlist: []string{
				"db.prod.example.com",
				"svc.cluster.local",
				"evil.untrusted.io", // denylist precedence test: present in both lists
			},
			Denylist: []string{"*.untrusted.io"},
			Exceptions: []Exception{
				{Host: "legacy.vendor.net", Namespaces: []string{"migration"}, ExpiresAt: testNow.Add(24 * time.Hour)},
				{Host: "expired.vendor.net", Namespaces: []string{"migration"}, ExpiresAt: testNow.Add(-time.Hour)},
			},
			Owners: Owners{Required: true, LabelKeys: []string{"owner"}, DefaultOwner: "platform"},
		},
	}
	if err := cfg.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return cfg
}

func extnService(name, namespace, externalName string) *manifest.Manifest {
	return &manifest.Manifest{
		Kind:     "Service",
		Metadata: manifest.Metadata{Name: name, Namespace: namespace},
		Spec:     map[string]interface{}{"type": "ExternalName", "externalName": externalName},
	}
}

func TestEvaluateExternalName_AllowlistedCleanHost(t *testing.T) {
	cfg := extnConfig(t)
	violations := EvaluateExternalName(extnService("db", "prod", "db.prod.example.com"), cfg, testNow)
	if len(violations) != 0 {
		t.Errorf("violations = %v, want none", violations)
	}
}

func TestEvaluateExternalName_DenylistBeatsAllowlist(t *testing.T) {
	cfg := extnConfig(t)
	// evil.untrusted.io is in the allowlist AND matches the denylist glob.
	violations := EvaluateExternalName(extnService("svc", "prod", "evil.untrusted.io"), cfg, testNow)
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want exactly 1 (denylist short-circuits)", len(violations))
	}
	if violations[0].Code != store.CodeExtnDenylist {
		t.Errorf("code = %q, want EXTN_IN_DENYLIST", violations[0].Code)
	}
	if violations[0].Severity != store.SeverityCritical {
		t.Errorf("severity = %q, want critical", violations[0].Severity)
	}
}

func TestEvaluateExternalName_NotAllowedShortCircuitsStructural(t *testing.T) {
	cfg := extnConfig(t)
	// Wildcard host, not allowlisted: only the allowlist rejection is
	// reported; the wildcard check never runs.
	violations := EvaluateExternalName(extnService("svc", "prod", "*.evil.com"), cfg, testNow)
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want exactly 1", len(violations))
	}
	if violations[0].Code != store.CodeExtnNotAllow {
		t.Errorf("code = %q, want EXTN_NOT_ALLOWED", violations[0].Code)
	}
}

func TestEvaluateExternalName_WildcardReportedWhenAllowlisted(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Allowlist = append(cfg.ExternalName.Allowlist, "*.evil.com")
	violations := EvaluateExternalName(extnService("svc", "prod", "*.evil.com"), cfg, testNow)
	if !hasCode(violations, store.CodeExtnWildcard) {
		t.Errorf("violations = %v, want EXTN_WILDCARD", violations)
	}
}

func TestEvaluateExternalName_ExceptionScopedToNamespace(t *testing.T) {
	cfg := extnConfig(t)

	// Active exception in its namespace: allowlist membership is bypassed.
	violations := EvaluateExternalName(extnService("legacy", "migration", "legacy.vendor.net"), cfg, testNow)
	if hasCode(violations, store.CodeExtnNotAllow) {
		t.Errorf("violations = %v, exception should bypass allowlist in namespace migration", violations)
	}

	// Same host in another namespace: exception does not apply.
	violations = EvaluateExternalName(extnService("legacy", "prod", "legacy.vendor.net"), cfg, testNow)
	if !hasCode(violations, store.CodeExtnNotAllow) {
		t.Errorf("violations = %v, want EXTN_NOT_ALLOWED outside the exception namespace", violations)
	}
}

func TestEvaluateExternalName_ExpiredExceptionIgnored(t *testing.T) {
	cfg := extnConfig(t)
	violations := EvaluateExternalName(extnService("legacy", "migration", "expired.vendor.net"), cfg, testNow)
	if !hasCode(violations, store.CodeExtnNotAllow) {
		t.Errorf("violations = %v, expired exception must behave as absent", violations)
	}
}

func TestEvaluateExternalName_ExceptionDoesNotBypassStructural(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Exceptions = append(cfg.ExternalName.Exceptions, Exception{
		Host:       "internal", // dotless
		Namespaces: []string{"migration"},
		ExpiresAt:  testNow.Add(time.Hour),
	})
	violations := EvaluateExternalName(extnService("legacy", "migration", "internal"), cfg, testNow)
	if hasCode(violations, store.CodeExtnNotAllow) {
		t.Errorf("violations = %v, exception should bypass allowlist membership", violations)
	}
	if !hasCode(violations, store.CodeExtnDotless) {
		t.Errorf("violations = %v, want EXTN_DOTLESS despite the exception", violations)
	}
	if !hasCode(violations, store.CodeExtnNotFQDN) {
		t.Errorf("violations = %v, want EXTN_NOT_FQDN despite the exception", violations)
	}
}

func TestEvaluateExternalName_StructuralChecksAccumulate(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Allowlist = append(cfg.ExternalName.Allowlist, "example.com")
	violations := EvaluateExternalName(extnService("svc", "prod", "example.com"), cfg, testNow)
	if !hasCode(violations, store.CodeExtnBare) {
		t.Errorf("violations = %v, want EXTN_BARE_DOMAIN", violations)
	}
	if !hasCode(violations, store.CodeExtnNotFQDN) {
		t.Errorf("violations = %v, want EXTN_NOT_FQDN", violations)
	}
	if len(violations) != 2 {
		t.Errorf("violations = %d, want 2 (structural rules accumulate)", len(violations))
	}
}

func TestEvaluateExternalName_Localhost(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Allowlist = append(cfg.ExternalName.Allowlist, "localhost")
	violations := EvaluateExternalName(extnService("svc", "prod", "LOCALHOST"), cfg, testNow)
	if !hasCode(violations, store.CodeExtnLocalhost) {
		t.Errorf("violations = %v, want EXTN_LOCALHOST", violations)
	}
}

func TestEvaluateExternalName_IPLiterals(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Allowlist = append(cfg.ExternalName.Allowlist, "10.0.0.1", "fe80::1")

	violations := EvaluateExternalName(extnService("svc", "prod", "10.0.0.1"), cfg, testNow)
	if !hasCode(violations, store.CodeExtnIPLiteral) {
		t.Errorf("violations = %v, want EXTN_IP_LITERAL for IPv4", violations)
	}

	violations = EvaluateExternalName(extnService("svc", "prod", "fe80::1"), cfg, testNow)
	if !hasCode(violations, store.CodeExtnIPLiteral) {
		t.Errorf("violations = %v, want EXTN_IP_LITERAL for IPv6", violations)
	}
}

func TestEvaluateExternalName_TooLong(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Validation.MaxLength = 20
	long := "a.very.long.hostname.example.com"
	cfg.ExternalName.Allowlist = append(cfg.ExternalName.Allowlist, long)
	violations := EvaluateExternalName(extnService("svc", "prod", long), cfg, testNow)
	if !hasCode(violations, store.CodeExtnTooLong) {
		t.Errorf("violations = %v, want EXTN_TOO_LONG", violations)
	}
}

func TestEvaluateExternalName_NormalizationBeforeMatching(t *testing.T) {
	cfg := extnConfig(t)
	// Mixed case, surrounding whitespace, and a trailing root dot all
	// normalize away before the allowlist comparison.
	violations := EvaluateExternalName(extnService("db", "prod", "  DB.Prod.Example.COM.  "), cfg, testNow)
	if len(violations) != 0 {
		t.Errorf("violations = %v, want none after normalization", violations)
	}
}

func TestEvaluateExternalName_IDNANormalization(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Allowlist = append(cfg.ExternalName.Allowlist, "xn--bcher-kva.example.com")
	violations := EvaluateExternalName(extnService("svc", "prod", "bücher.example.com"), cfg, testNow)
	if len(violations) != 0 {
		t.Errorf("violations = %v, want none (IDN normalizes to allowlisted punycode)", violations)
	}
}

func TestEvaluateExternalName_MissingHost(t *testing.T) {
	cfg := extnConfig(t)
	svc := &manifest.Manifest{
		Kind:     "Service",
		Metadata: manifest.Metadata{Name: "svc", Namespace: "prod"},
		Spec:     map[string]interface{}{"type": "ExternalName"},
	}
	violations := EvaluateExternalName(svc, cfg, testNow)
	if len(violations) != 1 || violations[0].Code != store.CodeInputError {
		t.Errorf("violations = %v, want single CONFIG_OR_INPUT_ERROR", violations)
	}
}

func TestEvaluateExternalName_EmptyAllowlistSkipsMembership(t *testing.T) {
	cfg := extnConfig(t)
	cfg.ExternalName.Allowlist = nil
	// Not allowlisted anywhere, but with no allowlist configured the
	// structural checks still run and still bite.
	violations := EvaluateExternalName(extnService("svc", "prod", "db"), cfg, testNow)
	if hasCode(violations, store.CodeExtnNotAllow) {
		t.Errorf("violations = %v, membership must not be enforced without an allowlist", violations)
	}
	if !hasCode(violations, store.CodeExtnNotFQDN) {
		t.Errorf("violations = %v, want EXTN_NOT_FQDN", violations)
	}
	if !hasCode(violations, store.CodeExtnDotless) {
		t.Errorf("violations = %v, want EXTN_DOTLESS", violations)
	}
}
