package policy

import (
	"github.com/kubegov/manifestgate/internal/store"
)

// fixes maps each violation code to a short remediation hint.
var fixes = map[store.Code]string{
	store.CodeNamePattern:   "rename the resource to lowercase alphanumerics and hyphens, starting and ending alphanumeric",
	store.CodeNameTooLong:   "shorten the resource name to fit the configured length limit",
	store.CodeLabelMissing:  "add the missing label to metadata.labels",
	store.CodeExtnDenylist:  "remove the ExternalName service or point it at an approved domain",
	store.CodeExtnNotAllow:  "add the host to the allowlist via a governance change, or request a time-bounded exception",
	store.CodeExtnWildcard:  "replace the wildcard with a concrete hostname",
	store.CodeExtnBare:      "use a fully-qualified service hostname instead of the bare domain",
	store.CodeExtnDotless:   "use a fully-qualified domain name, not a single label",
	store.CodeExtnLocalhost: "use a ClusterIP service instead of pointing ExternalName at localhost",
	store.CodeExtnIPLiteral: "use a headless service with a manual Endpoints object for IP targets",
	store.CodeExtnTooLong:   "shorten the external hostname to fit the configured length limit",
	store.CodeExtnNotFQDN:   "use a fully-qualified domain name with at least three segments",
	store.CodeInputError:    "fix the manifest or policy file so the field the rule reads is present and well-formed",
}

// severities maps each violation code to its reporting tier. Severity feeds
// exit codes and metrics only; any violation denies the manifest.
var severities = map[store.Code]store.Severity{
	store.CodeNamePattern:   store.SeverityWarn,
	store.CodeNameTooLong:   store.SeverityWarn,
	store.CodeLabelMissing:  store.SeverityWarn,
	store.CodeExtnDenylist:  store.SeverityCritical,
	store.CodeExtnNotAllow:  store.SeverityCritical,
	store.CodeExtnWildcard:  store.SeverityWarn,
	store.CodeExtnBare:      store.SeverityWarn,
	store.CodeExtnDotless:   store.SeverityWarn,
	store.CodeExtnLocalhost: store.SeverityCritical,
	store.CodeExtnIPLiteral: store.SeverityCritical,
	store.CodeExtnTooLong:   store.SeverityWarn,
	store.CodeExtnNotFQDN:   store.SeverityWarn,
	store.CodeInputError:    store.SeverityCritical,
}

// reporter builds violation records with resolved ownership for one
// manifest's labels.
type reporter struct {
	owners Owners
	labels map[string]string
}

func newReporter(owners Owners, labels map[string]string) reporter {
	return reporter{owners: owners, labels: labels}
}

// report builds a Violation for the given code. Owner resolution never
// fails: when owner labeling is not required, or no owner label is present,
// the configured default owner is used.
func (r reporter) report(code store.Code, message string) store.Violation {
	return store.Violation{
		Code:     code,
		Severity: severities[code],
		Message:  message,
		Owner:    r.owner(),
		Fix:      fixes[code],
	}
}

func (r reporter) owner() string {
	if r.owners.Required {
		for _, key := range r.owners.LabelKeys {
			if val, ok := r.labels[key]; ok {
				return val
			}
		}
	}
	return r.owners.DefaultOwner
}
