package tagging_test

import (
	"strings"
	"testing"

	"github.com/pbaille/fefe/internal/domain"
	"github.com/pbaille/fefe/internal/store"
	"github.com/pbaille/fefe/internal/tagging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallRules(t *testing.T) tagging.Rules {
	t.Helper()

	rules, err := tagging.NewRules([]tagging.Rule{
		{Name: "crypto", Triggers: []string{"btc", "Bitcoin"}},
		{Name: "politics", Triggers: []string{"merkel", "scholz"}},
		{Name: "agency", Triggers: []string{"nsa ", " nsa"}},
	})
	require.NoError(t, err)
	return rules
}

func TestEngine_Classify(t *testing.T) {
	t.Parallel()

	engine := tagging.NewEngine(smallRules(t), nil)

	testCases := []struct {
		name string
		body string
		want domain.Tags
	}{
		{name: "single rule", body: "Bitcoin crasht wieder.", want: domain.Tags{"crypto"}},
		{name: "case insensitive", body: "MERKEL sagt nichts Neues.", want: domain.Tags{"politics"}},
		{name: "declaration order, not text order", body: "Scholz kauft BTC.", want: domain.Tags{"crypto", "politics"}},
		{name: "repeated trigger counts once", body: "merkel merkel merkel", want: domain.Tags{"politics"}},
		{name: "spaces are significant", body: "Ein Wahnsinnsangebot", want: domain.Tags{domain.Untagged}},
		{name: "space-delimited trigger", body: "Die NSA hört mit.", want: domain.Tags{"agency"}},
		{name: "no match", body: "Heute scheint die Sonne.", want: domain.Tags{domain.Untagged}},
		{name: "empty body", body: "", want: domain.Tags{domain.Untagged}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, engine.Classify(tc.body))
		})
	}
}

func TestEngine_ClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	body := "Merkel und Scholz reden über Bitcoin und die NSA."
	a := tagging.NewEngine(smallRules(t), nil)

	// Same table with trigger lists reordered
	reordered, err := tagging.NewRules([]tagging.Rule{
		{Name: "crypto", Triggers: []string{"Bitcoin", "btc"}},
		{Name: "politics", Triggers: []string{"scholz", "merkel"}},
		{Name: "agency", Triggers: []string{" nsa", "nsa "}},
	})
	require.NoError(t, err)
	b := tagging.NewEngine(reordered, nil)

	first := a.Classify(body)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, a.Classify(body))
	}
	assert.Equal(t, first, b.Classify(body))
	assert.Equal(t, domain.Tags{"crypto", "politics", "agency"}, first)
}

func TestEngine_SharedTriggers(t *testing.T) {
	t.Parallel()

	rules, err := tagging.NewRules([]tagging.Rule{
		{Name: "cpu", Triggers: []string{"spectre", "intel"}},
		{Name: "spectre", Triggers: []string{"spectre", "meltdown"}},
		{Name: "security", Triggers: []string{"cve", "spectre"}},
	})
	require.NoError(t, err)

	engine := tagging.NewEngine(rules, nil)
	assert.Equal(t, 4, engine.TriggerCount())
	assert.Equal(t, domain.Tags{"cpu", "spectre", "security"}, engine.Classify("Neue Spectre-Variante"))
}

func TestEngine_MatchesNaiveSubstringSearch(t *testing.T) {
	t.Parallel()

	rules := tagging.DefaultRules()
	engine := tagging.NewEngine(rules, nil)

	bodies := []string{
		"Bitcoin crasht wieder.",
		"Merkel sagt nichts Neues.",
		"Die Bundesregierung will die Vorratsdatenspeicherung. Datenschutz? Egal.",
		"Intel hat schon wieder eine Sicherheitslücke, diesmal im TPM. Spectre lässt grüßen.",
		"Gute Nachricht: Die Bahn ist pünktlich. Schlechte Nachricht: nur in Berlin.",
		"Leserbrief zu Corona und Querdenkern auf Telegram.",
		"Heute nichts.",
	}

	for _, body := range bodies {
		var want domain.Tags
		lower := strings.ToLower(body)
		for _, rule := range rules.All() {
			for _, trigger := range rule.Triggers {
				if strings.Contains(lower, trigger) {
					want = append(want, rule.Name)
					break
				}
			}
		}
		if len(want) == 0 {
			want = domain.Tags{domain.Untagged}
		}
		assert.Equal(t, want, engine.Classify(body), body)
	}
}

func TestEngine_LabelReturnsCopies(t *testing.T) {
	t.Parallel()

	engine := tagging.NewEngine(smallRules(t), nil)
	articles := []domain.Article{
		{ID: "https://blog.fefe.de/?ts=def", Body: "Merkel sagt nichts Neues."},
		{ID: "https://blog.fefe.de/?ts=abc", Body: "Bitcoin crasht wieder."},
		{ID: "https://blog.fefe.de/?ts=xyz", Body: "Sonnenschein."},
	}

	labeled := engine.Label(articles)

	require.Len(t, labeled, 3)
	assert.Equal(t, domain.Tags{"politics"}, labeled[0].Tags)
	assert.Equal(t, domain.Tags{"crypto"}, labeled[1].Tags)
	assert.Equal(t, domain.Tags{domain.Untagged}, labeled[2].Tags)
	for _, a := range labeled {
		assert.NotEmpty(t, a.Tags)
	}
	for _, a := range articles {
		assert.Nil(t, a.Tags)
	}
}

func TestEngine_ApplyReplacesTagsByIndex(t *testing.T) {
	t.Parallel()

	corpus := store.NewCorpus()
	corpus.AppendMonth("202201", []domain.Article{
		{ID: "a", Body: "Bitcoin fällt"},
		{ID: "b", Body: "Wetter"},
		{ID: "c", Body: "Merkel kauft BTC"},
	})
	corpus.SetTags(1, domain.Tags{"stale"})

	engine := tagging.NewEngine(smallRules(t), nil)
	untagged := engine.Apply(corpus)

	assert.Equal(t, 1, untagged)
	assert.Equal(t, domain.Tags{"crypto"}, corpus.Article(0).Tags)
	assert.Equal(t, domain.Tags{domain.Untagged}, corpus.Article(1).Tags)
	assert.Equal(t, domain.Tags{"crypto", "politics"}, corpus.Article(2).Tags)

	// Applying again yields the same tags
	assert.Equal(t, 1, engine.Apply(corpus))
	assert.Equal(t, domain.Tags{"crypto", "politics"}, corpus.Article(2).Tags)
}

func TestNewRules_Validation(t *testing.T) {
	t.Parallel()

	_, err := tagging.NewRules([]tagging.Rule{{Name: "", Triggers: []string{"x"}}})
	assert.Error(t, err)

	_, err = tagging.NewRules([]tagging.Rule{{Name: "a", Triggers: []string{"x"}}, {Name: "a", Triggers: []string{"y"}}})
	assert.Error(t, err)

	_, err = tagging.NewRules([]tagging.Rule{{Name: "a", Triggers: []string{" ", ""}}})
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	rules, err := tagging.LoadRules(strings.NewReader(`
- name: crypto
  triggers: [btc, Bitcoin]
- name: agency
  triggers: ["nsa ", " nsa"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"crypto", "agency"}, rules.Names())
	assert.Equal(t, []string{"btc", "bitcoin"}, rules.All()[0].Triggers)
	assert.Equal(t, []string{"nsa ", " nsa"}, rules.All()[1].Triggers)

	_, err = tagging.LoadRules(strings.NewReader("name: [unterminated"))
	assert.Error(t, err)
}

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	rules := tagging.DefaultRules()
	names := rules.Names()

	require.NotEmpty(t, names)
	assert.Equal(t, "old-and-busted", names[0])
	assert.Contains(t, names, "politics")
	assert.Contains(t, names, "crypto")
	assert.Equal(t, "berlin", names[len(names)-1])
}
