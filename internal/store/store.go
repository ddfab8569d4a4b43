package store

import "time"

// Severity classifies how urgent a violation is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Code identifies a governance rule violation. The set is closed so that
// downstream tooling can branch on codes without string matching.
type Code string

const (
	CodeNamePattern   Code = "NAME_PATTERN"
	CodeNameTooLong   Code = "NAME_TOO_LONG"
	CodeLabelMissing  Code = "LABEL_MISSING"
	CodeExtnDenylist  Code = "EXTN_IN_DENYLIST"
	CodeExtnNotAllow  Code = "EXTN_NOT_ALLOWED"
	CodeExtnWildcard  Code = "EXTN_WILDCARD"
	CodeExtnBare      Code = "EXTN_BARE_DOMAIN"
	CodeExtnDotless   Code = "EXTN_DOTLESS"
	CodeExtnLocalhost Code = "EXTN_LOCALHOST"
	CodeExtnIPLiteral Code = "EXTN_IP_LITERAL"
	CodeExtnTooLong   Code = "EXTN_TOO_LONG"
	CodeExtnNotFQDN   Code = "EXTN_NOT_FQDN"
	CodeInputError    Code = "CONFIG_OR_INPUT_ERROR"
)

// Violation is a single governance rule failure with remediation context.
type Violation struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Owner    string   `json:"owner"`
	Fix      string   `json:"fix"`
}

// Decision is the outcome of evaluating one manifest.
// Allowed is true exactly when Violations is empty.
type Decision struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations"`
}

// Result ties a decision back to the manifest it was made for.
type Result struct {
	Kind      string   `json:"kind"`
	Namespace string   `json:"namespace,omitempty"`
	Name      string   `json:"name,omitempty"`
	Source    string   `json:"source,omitempty"` // file path or "webhook"
	Decision  Decision `json:"decision"`
}

// Snapshot is a point-in-time collection of results from one batch run.
type Snapshot struct {
	At      time.Time         `json:"at"`
	Results []Result          `json:"results"`
	Errors  map[string]string `json:"errors,omitempty"` // source → parse/input error
}

// Denied returns the results whose decision is not allowed.
func (s Snapshot) Denied() []Result {
	var denied []Result
	for i := range s.Results {
		if !s.Results[i].Decision.Allowed {
			denied = append(denied, s.Results[i])
		}
	}
	return denied
}

// Counts returns the number of violations in the snapshot by severity.
func (s Snapshot) Counts() map[Severity]int {
	counts := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarn:     0,
		SeverityCritical: 0,
	}
	for i := range s.Results {
		for _, v := range s.Results[i].Decision.Violations {
			counts[v.Severity]++
		}
	}
	return counts
}
