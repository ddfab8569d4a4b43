package policy

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/idna"

	"github.com/kubegov/manifestgate/internal/manifest"
	"github.com/kubegov/manifestgate/internal/store"
)

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// EvaluateExternalName runs the domain governance pipeline for a Service of
// type ExternalName. Precedence is strict: denylist first (unconditional
// security override, wins even over allowlist membership), then exceptions
// (which bypass allowlist membership only), then allowlist, then the
// structural hygiene checks. The first three stages short-circuit; the
// structural checks accumulate.
func EvaluateExternalName(m *manifest.Manifest, cfg *Config, now time.Time) []store.Violation {
	en := &cfg.ExternalName
	rep := newReporter(en.Owners, m.Metadata.Labels)

	raw := m.ExternalName()
	if strings.TrimSpace(raw) == "" {
		return []store.Violation{rep.report(store.CodeInputError,
			fmt.Sprintf("service %q declares type ExternalName but spec.externalName is missing", m.Metadata.Name))}
	}

	host, err := normalizeHost(raw, en.Validation.IDNANormalize)
	if err != nil {
		return []store.Violation{rep.report(store.CodeInputError,
			fmt.Sprintf("normalizing external name %q: %v", raw, err))}
	}

	matchers, err := denyMatchersFor(en)
	if err != nil {
		return []store.Violation{rep.report(store.CodeInputError,
			fmt.Sprintf("compiling denylist: %v", err))}
	}
	for _, mtr := range matchers {
		if mtr.Match(host) {
			return []store.Violation{rep.report(store.CodeExtnDenylist,
				fmt.Sprintf("external name %q matches denylist pattern %q", host, mtr.Pattern()))}
		}
	}

	// An empty allowlist means membership is not enforced; the structural
	// checks below still apply.
	excepted := activeException(en.Exceptions, host, m.Metadata.Namespace, now)
	if !excepted && len(en.Allowlist) > 0 && !inAllowlist(en.Allowlist, host) {
		return []store.Violation{rep.report(store.CodeExtnNotAllow,
			fmt.Sprintf("external name %q is not in the allowlist", host))}
	}

	return structuralViolations(host, en.Validation, rep)
}

// structuralViolations evaluates the baseline hygiene rules independently,
// collecting every applicable violation. Exceptions never reach past the
// allowlist stage, so a bypassed host still has to be well-formed.
func structuralViolations(host string, checks ExternalNameChecks, rep reporter) []store.Violation {
	var violations []store.Violation
	segments := strings.Count(host, ".") + 1

	if checks.ForbidWildcard && strings.Contains(host, "*") {
		violations = append(violations, rep.report(store.CodeExtnWildcard,
			fmt.Sprintf("external name %q contains a wildcard", host)))
	}
	if checks.ForbidBareDomain && segments == 2 {
		violations = append(violations, rep.report(store.CodeExtnBare,
			fmt.Sprintf("external name %q is a bare domain", host)))
	}
	if checks.ForbidDotless && segments < 2 {
		violations = append(violations, rep.report(store.CodeExtnDotless,
			fmt.Sprintf("external name %q has no domain segments", host)))
	}
	if checks.ForbidLocalhost && host == "localhost" {
		violations = append(violations, rep.report(store.CodeExtnLocalhost,
			"external name points at localhost"))
	}
	if checks.ForbidIPLiteral && (ipv4Pattern.MatchString(host) || strings.Contains(host, ":")) {
		violations = append(violations, rep.report(store.CodeExtnIPLiteral,
			fmt.Sprintf("external name %q is an IP literal", host)))
	}
	if checks.MaxLength > 0 && len(host) > checks.MaxLength {
		violations = append(violations, rep.report(store.CodeExtnTooLong,
			fmt.Sprintf("external name %q is %d characters, limit is %d", host, len(host), checks.MaxLength)))
	}
	if checks.RequireFQDN && segments < 3 {
		violations = append(violations, rep.report(store.CodeExtnNotFQDN,
			fmt.Sprintf("external name %q is not a fully-qualified domain name", host)))
	}

	return violations
}

// normalizeHost trims whitespace and a trailing root dot, lowercases, and
// optionally converts internationalized names to their ASCII (punycode)
// form. ASCII hosts skip the IDNA pass so that malformed-but-ASCII input
// still reaches the structural checks that report on it.
func normalizeHost(raw string, useIDNA bool) (string, error) {
	host := strings.ToLower(strings.TrimSpace(raw))
	host = strings.TrimSuffix(host, ".")
	if useIDNA && utf8.RuneCountInString(host) != len(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", err
		}
		host = ascii
	}
	return host, nil
}

// activeException reports whether any exception grants this host a bypass
// in this namespace at this instant. Expired entries behave as if absent.
func activeException(exceptions []Exception, host, namespace string, now time.Time) bool {
	for _, exc := range exceptions {
		if !strings.EqualFold(strings.TrimSpace(exc.Host), host) {
			continue
		}
		if !exc.ExpiresAt.IsZero() && !now.Before(exc.ExpiresAt) {
			continue
		}
		if len(exc.Namespaces) == 0 {
			return true
		}
		for _, ns := range exc.Namespaces {
			if ns == namespace {
				return true
			}
		}
	}
	return false
}

func inAllowlist(allowlist []string, host string) bool {
	for _, entry := range allowlist {
		if strings.EqualFold(strings.TrimSpace(entry), host) {
			return true
		}
	}
	return false
}
