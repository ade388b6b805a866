package tagging

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yml
var defaultRules []byte

// Rule is a named tag with case-insensitive substring triggers
type Rule struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
}

// Rules is an ordered, validated rule table. Declaration order is the
// order tags appear in on every article.
type Rules struct {
	rules []Rule
}

// NewRules validates and copies a rule table. Triggers are lowercased but
// not trimmed: surrounding spaces act as word boundaries.
func NewRules(rules []Rule) (Rules, error) {
	seen := make(map[string]struct{}, len(rules))
	out := make([]Rule, 0, len(rules))

	for i, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return Rules{}, fmt.Errorf("rule %d: empty name", i)
		}
		if _, ok := seen[name]; ok {
			return Rules{}, fmt.Errorf("rule %q: duplicate name", name)
		}
		seen[name] = struct{}{}

		triggers := make([]string, 0, len(r.Triggers))
		for _, t := range r.Triggers {
			if strings.TrimSpace(t) == "" {
				continue
			}
			triggers = append(triggers, strings.ToLower(t))
		}
		if len(triggers) == 0 {
			return Rules{}, fmt.Errorf("rule %q: no triggers", name)
		}

		out = append(out, Rule{Name: name, Triggers: triggers})
	}

	return Rules{rules: out}, nil
}

// LoadRules reads a YAML rule table:
//
//	- name: crypto
//	  triggers: [btc, bitcoin]
func LoadRules(r io.Reader) (Rules, error) {
	var rules []Rule
	if err := yaml.NewDecoder(r).Decode(&rules); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	return NewRules(rules)
}

// DefaultRules returns the built-in fefe rule table
func DefaultRules() Rules {
	rules, err := LoadRules(strings.NewReader(string(defaultRules)))
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yml: %v", err))
	}
	return rules
}

// Names returns the rule names in declaration order
func (r Rules) Names() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}

// All returns a copy of the rules
func (r Rules) All() []Rule {
	out := make([]Rule, len(r.rules))
	for i, rule := range r.rules {
		out[i] = Rule{Name: rule.Name, Triggers: append([]string(nil), rule.Triggers...)}
	}
	return out
}

// Len returns the number of rules
func (r Rules) Len() int {
	return len(r.rules)
}
