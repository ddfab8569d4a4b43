package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher is a compiled domain glob pattern. Only `*` is a wildcard; every
// other character matches literally. The restricted syntax keeps governance
// configuration auditable.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// CompileGlob translates a domain glob (e.g. "*.untrusted.io") into an
// anchored, case-insensitive matcher.
func CompileGlob(pattern string) (Matcher, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		if r == '*' {
			b.WriteString(".*")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return Matcher{}, fmt.Errorf("compiling glob %q: %w", pattern, err)
	}
	return Matcher{pattern: pattern, re: re}, nil
}

// Match reports whether the host matches the pattern.
func (m Matcher) Match(host string) bool {
	return m.re.MatchString(host)
}

// Pattern returns the original glob source.
func (m Matcher) Pattern() string {
	return m.pattern
}
