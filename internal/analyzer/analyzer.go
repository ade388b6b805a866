// Package analyzer reports tag coverage of a classified corpus and mines
// frequent words of untagged posts as candidates for new tag rules.
package analyzer

import (
	"sort"
	"strings"

	"github.com/pbaille/fefe/internal/domain"
)

// DefaultTopN is the number of words reported by the mining operations
const DefaultTopN = 50

// IgnoredWords are noise tokens the extractor does not drop on its own
var IgnoredWords = []string{
	">", "the", "to", "mal", "of", "and", "that", "[die", "for", "is", "-", "with", "by", "paar", "as", "[der", "it", "eigentlich",
	"not", "[in", "are", "halt", "from", "their", "on", "oh", "be", "kennt", "raus", "heißt", "lassen", "said", "more", "have", "stellt",
	"[hier", "einfach", "[das", "or", "sagen", "has", "this", "at", "fall", "—", "no", "after", "they", "frage", "new", "bloß", "who",
	"us", "but",
}

// WordExtractor turns text into significant words, duplicates included
type WordExtractor interface {
	Extract(text string) []string
}

// HistogramRow counts the articles carrying exactly Count real tags
type HistogramRow struct {
	Count      int         `json:"count"`
	Articles   int         `json:"articles"`
	SampleID   string      `json:"sample_id,omitempty"`
	SampleTags domain.Tags `json:"sample_tags,omitempty"`
}

// TagCount is the number of articles carrying one tag
type TagCount struct {
	Tag      string `json:"tag"`
	Articles int    `json:"articles"`
}

// WordFreq is one row of a frequency table
type WordFreq struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Report bundles every analysis of a corpus
type Report struct {
	Articles      int            `json:"articles"`
	Untagged      int            `json:"untagged"`
	Histogram     []HistogramRow `json:"histogram"`
	TagCounts     []TagCount     `json:"tag_counts"`
	UntaggedWords []WordFreq     `json:"untagged_words"`
	CoverageGaps  []WordFreq     `json:"coverage_gaps"`
}

// Analyzer computes read-only statistics over classified articles
type Analyzer struct {
	tags      []string
	extractor WordExtractor
	ignored   map[string]struct{}
	topN      int
}

// New creates an Analyzer for the given rule names (in table order)
func New(tagNames []string, extractor WordExtractor) *Analyzer {
	ignored := make(map[string]struct{}, len(IgnoredWords))
	for _, w := range IgnoredWords {
		ignored[w] = struct{}{}
	}
	return &Analyzer{
		tags:      append([]string(nil), tagNames...),
		extractor: extractor,
		ignored:   ignored,
		topN:      DefaultTopN,
	}
}

// Histogram counts articles per number of real tags, from the highest count
// down to zero. The sample is the first article with that count.
func (a *Analyzer) Histogram(articles []domain.Article) []HistogramRow {
	maxTags := 0
	for _, art := range articles {
		if n := len(art.Tags.Real()); n > maxTags {
			maxTags = n
		}
	}

	rows := make([]HistogramRow, 0, maxTags+1)
	for k := maxTags; k >= 0; k-- {
		row := HistogramRow{Count: k}
		for _, art := range articles {
			if len(art.Tags.Real()) != k {
				continue
			}
			if row.Articles == 0 {
				row.SampleID = art.ID
				row.SampleTags = art.Tags
			}
			row.Articles++
		}
		rows = append(rows, row)
	}
	return rows
}

// TagCounts counts articles per rule, in rule table order
func (a *Analyzer) TagCounts(articles []domain.Article) []TagCount {
	counts := make([]TagCount, len(a.tags))
	for i, tag := range a.tags {
		counts[i].Tag = tag
		for _, art := range articles {
			if art.Tags.Has(tag) {
				counts[i].Articles++
			}
		}
	}
	return counts
}

// UntaggedWords returns the most frequent significant words of untagged articles
func (a *Analyzer) UntaggedWords(articles []domain.Article) []WordFreq {
	return CountFrequency(a.untaggedWords(articles), 0, a.topN)
}

// CoverageGaps returns the frequent untagged words that never occur in a tagged article
func (a *Analyzer) CoverageGaps(articles []domain.Article) []WordFreq {
	return a.coverageGaps(articles, a.UntaggedWords(articles))
}

// Report runs every analysis
func (a *Analyzer) Report(articles []domain.Article) Report {
	untaggedWords := a.UntaggedWords(articles)

	untagged := 0
	for _, art := range articles {
		if art.Tags.IsUntagged() {
			untagged++
		}
	}

	return Report{
		Articles:      len(articles),
		Untagged:      untagged,
		Histogram:     a.Histogram(articles),
		TagCounts:     a.TagCounts(articles),
		UntaggedWords: untaggedWords,
		CoverageGaps:  a.coverageGaps(articles, untaggedWords),
	}
}

func (a *Analyzer) untaggedWords(articles []domain.Article) []string {
	var bodies []string
	for _, art := range articles {
		if art.Tags.IsUntagged() {
			bodies = append(bodies, art.Body)
		}
	}
	if len(bodies) == 0 {
		return nil
	}

	var words []string
	for _, w := range a.extractor.Extract(strings.Join(bodies, " ")) {
		if _, ok := a.ignored[w]; !ok {
			words = append(words, w)
		}
	}
	return words
}

func (a *Analyzer) coverageGaps(articles []domain.Article, top []WordFreq) []WordFreq {
	var bodies []string
	for _, art := range articles {
		if !art.Tags.IsUntagged() {
			bodies = append(bodies, art.Body)
		}
	}

	tagged := make(map[string]struct{})
	if len(bodies) > 0 {
		for _, w := range a.extractor.Extract(strings.Join(bodies, " ")) {
			tagged[w] = struct{}{}
		}
	}

	gaps := make([]WordFreq, 0, len(top))
	for _, wf := range top {
		if _, ok := tagged[wf.Word]; !ok {
			gaps = append(gaps, wf)
		}
	}
	return gaps
}

// CountFrequency counts occurrences, keeps entries with a count above minCount and
// returns at most n of them (n <= 0 means all), most frequent first. Ties keep
// the order of first occurrence.
func CountFrequency(words []string, minCount, n int) []WordFreq {
	index := make(map[string]int)
	var freqs []WordFreq
	for _, w := range words {
		i, ok := index[w]
		if !ok {
			i = len(freqs)
			index[w] = i
			freqs = append(freqs, WordFreq{Word: w})
		}
		freqs[i].Count++
	}

	sort.SliceStable(freqs, func(i, j int) bool {
		return freqs[i].Count > freqs[j].Count
	})

	out := make([]WordFreq, 0, len(freqs))
	for _, f := range freqs {
		if f.Count > minCount {
			out = append(out, f)
		}
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
