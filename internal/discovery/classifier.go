package discovery

import (
	"fmt"
	"regexp"
	"strings"
)

// Classifier maps a manuscript viewer URL to the canonical adapter that
// handles it. Pure pattern matching, no I/O.
type Classifier struct {
	rules []classifierRule
	canon map[string]AdapterID
}

type classifierRule struct {
	id       AdapterID
	patterns []*regexp.Regexp
}

// NewClassifier compiles classification rules from the library table.
// Rule order follows table order; the first matching rule wins.
func NewClassifier(libs []LibraryConfig) (*Classifier, error) {
	c := &Classifier{
		canon: make(map[string]AdapterID),
	}

	for i := range libs {
		lib := &libs[i]
		rule := classifierRule{id: lib.ID}
		for _, pattern := range lib.Match {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid match pattern for %s: %w", lib.ID, err)
			}
			rule.patterns = append(rule.patterns, re)
		}
		c.rules = append(c.rules, rule)

		c.canon[string(lib.ID)] = lib.ID
		for _, alias := range lib.Aliases {
			c.canon[alias] = lib.ID
		}
	}
	return c, nil
}

// Classify returns the canonical adapter for the URL. ok is false when no
// rule matches; callers surface that as LibraryNotSupported, never by
// falling back to a default adapter.
func (c *Classifier) Classify(rawURL string) (AdapterID, bool) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return "", false
	}
	for _, rule := range c.rules {
		for _, re := range rule.patterns {
			if re.MatchString(url) {
				return rule.id, true
			}
		}
	}
	return "", false
}

// Canonical resolves an adapter identifier or any of its aliases to the
// canonical AdapterID. Alias spellings never travel past this boundary.
func (c *Classifier) Canonical(id string) (AdapterID, bool) {
	canonical, ok := c.canon[strings.TrimSpace(strings.ToLower(id))]
	return canonical, ok
}
