// Package tagging assigns keyword-derived tags to articles.
// engine.go matches all triggers of all rules in one Aho-Corasick pass.
package tagging

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/pbaille/fefe/internal/domain"
	"go.uber.org/zap"
)

// Engine classifies article bodies against an immutable rule table
type Engine struct {
	mu       sync.Mutex // Matcher.Match is not safe for concurrent use
	rules    Rules
	matcher  *ahocorasick.Matcher
	triggers []string
	// trigger index -> indices of the rules it belongs to
	owners [][]int
}

// NewEngine builds the automaton over the distinct triggers of rules
func NewEngine(rules Rules, logger *zap.Logger) *Engine {
	e := &Engine{rules: rules}

	index := make(map[string]int)
	for ri, rule := range rules.All() {
		for _, t := range rule.Triggers {
			ti, ok := index[t]
			if !ok {
				ti = len(e.triggers)
				index[t] = ti
				e.triggers = append(e.triggers, t)
				e.owners = append(e.owners, nil)
			}
			e.owners[ti] = append(e.owners[ti], ri)
		}
	}

	if len(e.triggers) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(e.triggers)
	}

	if logger != nil {
		logger.Debug("tagging engine initialized",
			zap.Int("rules", rules.Len()),
			zap.Int("triggers", len(e.triggers)))
	}
	return e
}

// Classify returns the names of all rules with a trigger in body, in rule
// declaration order, or just the sentinel label when none match.
func (e *Engine) Classify(body string) domain.Tags {
	matched := make([]bool, e.rules.Len())

	if e.matcher != nil {
		e.mu.Lock()
		hits := e.matcher.Match([]byte(strings.ToLower(body)))
		e.mu.Unlock()

		for _, ti := range hits {
			if ti >= len(e.owners) {
				continue
			}
			for _, ri := range e.owners[ti] {
				matched[ri] = true
			}
		}
	}

	var names []string
	for ri, ok := range matched {
		if ok {
			names = append(names, e.rules.rules[ri].Name)
		}
	}
	if len(names) == 0 {
		return domain.Tags{domain.Untagged}
	}
	return domain.NewTags(names...)
}

// Label returns copies of articles with freshly computed tags.
// The input slice is not modified.
func (e *Engine) Label(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	for i, a := range articles {
		a.Tags = e.Classify(a.Body)
		out[i] = a
	}
	return out
}

// Target is a corpus whose tags can be replaced by article index
type Target interface {
	Articles() []domain.Article
	SetTags(i int, tags domain.Tags)
}

// Apply labels every article of t and writes the tags back by index.
// It returns the number of articles left untagged.
func (e *Engine) Apply(t Target) int {
	untagged := 0
	for i, a := range e.Label(t.Articles()) {
		t.SetTags(i, a.Tags)
		if a.Tags.IsUntagged() {
			untagged++
		}
	}
	return untagged
}

// Rules returns the rule table
func (e *Engine) Rules() Rules {
	return e.rules
}

// TriggerCount returns the number of distinct triggers
func (e *Engine) TriggerCount() int {
	return len(e.triggers)
}
