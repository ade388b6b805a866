package store

import (
	"fmt"
	"sort"

	"github.com/pbaille/fefe/internal/domain"
)

// Corpus holds the ordered article list and the set of ingested months.
// It has a single writer; callers must not mutate it concurrently.
type Corpus struct {
	articles []domain.Article
	ids      map[string]int
	months   []domain.MonthKey
	monthSet map[domain.MonthKey]struct{}
}

// NewCorpus creates an empty corpus
func NewCorpus() *Corpus {
	return &Corpus{
		ids:      make(map[string]int),
		monthSet: make(map[domain.MonthKey]struct{}),
	}
}

// FromSnapshot rebuilds a corpus from persisted state.
// Duplicate months or article ids are reported as corruption.
func FromSnapshot(snap *Snapshot) (*Corpus, error) {
	c := NewCorpus()
	for _, key := range snap.Months {
		if _, err := domain.ParseMonthKey(key.String()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		if c.HasMonth(key) {
			return nil, fmt.Errorf("%w: duplicate month %s", ErrSnapshotCorrupt, key)
		}
		c.monthSet[key] = struct{}{}
		c.months = append(c.months, key)
	}
	for _, a := range snap.Articles {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: article without id", ErrSnapshotCorrupt)
		}
		if _, ok := c.ids[a.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate article %s", ErrSnapshotCorrupt, a.ID)
		}
		c.ids[a.ID] = len(c.articles)
		c.articles = append(c.articles, a)
	}
	return c, nil
}

// Snapshot returns a copy of the corpus state for persistence
func (c *Corpus) Snapshot() *Snapshot {
	return &Snapshot{
		Articles: c.Articles(),
		Months:   c.Months(),
	}
}

// HasMonth reports whether a month has already been ingested
func (c *Corpus) HasMonth(key domain.MonthKey) bool {
	_, ok := c.monthSet[key]
	return ok
}

// AppendMonth appends a month's articles and marks the month ingested.
// Articles whose id is already present are skipped. A month that is already
// ingested is left untouched and reported with added == false.
func (c *Corpus) AppendMonth(key domain.MonthKey, articles []domain.Article) (added bool, skipped int) {
	if c.HasMonth(key) {
		return false, 0
	}
	for _, a := range articles {
		if _, ok := c.ids[a.ID]; ok {
			skipped++
			continue
		}
		c.ids[a.ID] = len(c.articles)
		c.articles = append(c.articles, a)
	}
	c.monthSet[key] = struct{}{}
	c.months = append(c.months, key)
	return true, skipped
}

// Len returns the number of articles
func (c *Corpus) Len() int {
	return len(c.articles)
}

// Article returns the article at index i
func (c *Corpus) Article(i int) domain.Article {
	return c.articles[i]
}

// Articles returns a copy of the articles in append order
func (c *Corpus) Articles() []domain.Article {
	out := make([]domain.Article, len(c.articles))
	copy(out, c.articles)
	return out
}

// Months returns the ingested months in ingestion order
func (c *Corpus) Months() []domain.MonthKey {
	out := make([]domain.MonthKey, len(c.months))
	copy(out, c.months)
	return out
}

// SetTags replaces the tags of the article at index i
func (c *Corpus) SetTags(i int, tags domain.Tags) {
	c.articles[i].Tags = tags
}

// Timeline returns the articles ordered by publication time.
// Articles published on the same day keep their append order.
func (c *Corpus) Timeline() []domain.Article {
	out := c.Articles()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt < out[j].PublishedAt
	})
	return out
}
