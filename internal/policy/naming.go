package policy

import (
	"fmt"

	"github.com/kubegov/manifestgate/internal/manifest"
	"github.com/kubegov/manifestgate/internal/store"
)

// ValidateNaming checks a resource's name and labels against the naming
// rule configured for its kind. Kinds without a rule pass through with no
// violations. All checks run; nothing short-circuits, so a single pass
// reports every defect at once.
func ValidateNaming(kind string, meta manifest.Metadata, cfg *Config) []store.Violation {
	rule, ok := cfg.Naming[kind]
	if !ok {
		return nil
	}

	rep := newReporter(cfg.ExternalName.Owners, meta.Labels)
	var violations []store.Violation

	re, err := namePattern(rule)
	if err != nil {
		violations = append(violations, rep.report(store.CodeInputError,
			fmt.Sprintf("invalid naming pattern %q for kind %s: %v", rule.Pattern, kind, err)))
	} else if !re.MatchString(meta.Name) {
		violations = append(violations, rep.report(store.CodeNamePattern,
			fmt.Sprintf("name %q does not match pattern %q for kind %s", meta.Name, rule.Pattern, kind)))
	}

	if len(meta.Name) > rule.MaxLength {
		violations = append(violations, rep.report(store.CodeNameTooLong,
			fmt.Sprintf("name %q is %d characters, limit is %d", meta.Name, len(meta.Name), rule.MaxLength)))
	}

	for _, key := range rule.RequiredLabels {
		if _, present := meta.Labels[key]; !present {
			violations = append(violations, rep.report(store.CodeLabelMissing,
				fmt.Sprintf("required label %q is missing", key)))
		}
	}

	return violations
}
