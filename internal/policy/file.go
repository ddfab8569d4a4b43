package policy

import (
	"fmt"
	"os"
	"regexp"

	"sigs.k8s.io/yaml"
)

// LoadFromFile reads a YAML policy file, validates it, and precompiles its
// patterns. The returned Config is ready for concurrent evaluation.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided policy file path
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}
	if err := cfg.Compile(); err != nil {
		return nil, fmt.Errorf("policy validation: %w", err)
	}
	return &cfg, nil
}

// Compile validates the policy and precompiles naming patterns and denylist
// globs. It must be called before the config is shared with evaluators.
func (c *Config) Compile() error {
	for kind, rule := range c.Naming {
		if rule.Pattern == "" {
			return fmt.Errorf("naming rule for kind %q has no pattern", kind)
		}
		if rule.MaxLength <= 0 {
			return fmt.Errorf("naming rule for kind %q: maxLength must be positive, got %d", kind, rule.MaxLength)
		}
		re, err := regexp.Compile(anchor(rule.Pattern))
		if err != nil {
			return fmt.Errorf("naming rule for kind %q: %w", kind, err)
		}
		rule.compiled = re
		c.Naming[kind] = rule
	}

	en := &c.ExternalName
	if en.Validation.MaxLength < 0 {
		return fmt.Errorf("externalName.validation.maxLength must not be negative, got %d", en.Validation.MaxLength)
	}
	en.denyMatchers = make([]Matcher, 0, len(en.Denylist))
	for _, pattern := range en.Denylist {
		m, err := CompileGlob(pattern)
		if err != nil {
			return fmt.Errorf("denylist: %w", err)
		}
		en.denyMatchers = append(en.denyMatchers, m)
	}
	for i, exc := range en.Exceptions {
		if exc.Host == "" {
			return fmt.Errorf("exception %d has no host", i)
		}
	}
	return nil
}

// anchor wraps a pattern so it must match the whole name.
func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}

// namePattern returns the compiled regex for a naming rule, compiling into
// a local when Compile was not called. The rule itself is never mutated
// here, so concurrent evaluations stay race-free.
func namePattern(rule NamingRule) (*regexp.Regexp, error) {
	if rule.compiled != nil {
		return rule.compiled, nil
	}
	return regexp.Compile(anchor(rule.Pattern))
}

// denyMatchersFor returns the compiled denylist, compiling into locals when
// Compile was not called.
func denyMatchersFor(en *ExternalNameConfig) ([]Matcher, error) {
	if en.denyMatchers != nil || len(en.Denylist) == 0 {
		return en.denyMatchers, nil
	}
	matchers := make([]Matcher, 0, len(en.Denylist))
	for _, pattern := range en.Denylist {
		m, err := CompileGlob(pattern)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}
