// Package policy implements the resource governance rules: per-kind naming
// conventions, required labels, and domain governance for ExternalName
// services.
package policy

import (
	"regexp"
	"time"
)

// NamingRule constrains resource names and labels for one kind.
type NamingRule struct {
	Pattern        string   `json:"pattern"`
	MaxLength      int      `json:"maxLength"`
	RequiredLabels []string `json:"requiredLabels,omitempty"`

	compiled *regexp.Regexp // set by Compile
}

// ExternalNameChecks are the structural hygiene rules for external hosts.
type ExternalNameChecks struct {
	RequireFQDN      bool `json:"requireFQDN"`
	ForbidWildcard   bool `json:"forbidWildcard"`
	ForbidBareDomain bool `json:"forbidBareDomain"`
	ForbidDotless    bool `json:"forbidDotless"`
	ForbidLocalhost  bool `json:"forbidLocalhost"`
	ForbidIPLiteral  bool `json:"forbidIPLiteral"`
	IDNANormalize    bool `json:"idnaNormalize"`
	MaxLength        int  `json:"maxLength"`
}

// Exception grants one host a time-bounded, namespace-scoped bypass of the
// allowlist-membership requirement. It never bypasses structural checks.
type Exception struct {
	Host       string    `json:"host"`
	Namespaces []string  `json:"namespaces,omitempty"` // empty = all namespaces
	ExpiresAt  time.Time `json:"expiresAt"`            // zero = no expiry
}

// Owners controls how a violation's owner field is resolved from labels.
type Owners struct {
	Required     bool     `json:"required"`
	LabelKeys    []string `json:"labelKeys,omitempty"`
	DefaultOwner string   `json:"defaultOwner"`
}

// ExternalNameConfig is the domain governance ruleset for Service resources
// of type ExternalName.
type ExternalNameConfig struct {
	Validation ExternalNameChecks `json:"validation"`
	Allowlist  []string           `json:"allowlist,omitempty"` // exact hosts
	Denylist   []string           `json:"denylist,omitempty"`  // glob patterns, ordered
	Exceptions []Exception        `json:"exceptions,omitempty"`
	Owners     Owners             `json:"owners"`

	denyMatchers []Matcher // set by Compile, parallel to Denylist
}

// Config is an immutable governance policy snapshot. Construct once (or via
// LoadFromFile), call Compile, and share read-only across evaluations. A
// reload builds a fresh Config and swaps it atomically (see Engine.Reload)
// rather than mutating in place.
type Config struct {
	Naming       map[string]NamingRule `json:"naming,omitempty"`
	ExternalName ExternalNameConfig    `json:"externalName"`
}
