// Package ingest drives the month-by-month crawl of the archive.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/pbaille/fefe/internal/domain"
	"go.uber.org/zap"
)

// MonthFetcher retrieves the articles of one archive month in document order
type MonthFetcher interface {
	Fetch(ctx context.Context, key domain.MonthKey) ([]domain.Article, error)
}

// MonthStore is the part of the corpus store the controller needs
type MonthStore interface {
	HasMonth(key domain.MonthKey) bool
	AppendMonth(key domain.MonthKey, articles []domain.Article) bool
	Persist() error
}

// Result summarizes one run
type Result struct {
	Probed   int
	Fetched  int
	Skipped  int
	Articles int
}

// Controller walks a month range, fetching months the store does not have yet
type Controller struct {
	store            MonthStore
	fetcher          MonthFetcher
	persistEachMonth bool
	loc              *time.Location
	logger           *zap.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithPersistEachMonth persists the store after every appended month so a
// failure later in the range keeps earlier progress.
func WithPersistEachMonth(enabled bool) Option {
	return func(c *Controller) { c.persistEachMonth = enabled }
}

// WithLocation sets the timezone month boundaries are computed in
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.loc = loc }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates a Controller
func New(store MonthStore, fetcher MonthFetcher, opts ...Option) *Controller {
	c := &Controller{
		store:            store,
		fetcher:          fetcher,
		persistEachMonth: true,
		loc:              time.Local,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run ingests every month from startYear/startMonth up to and including the
// month containing end. Cached months are skipped without a network call.
// The first fetch or parse error aborts the run. The store is persisted once
// at the end, or after each fetched month when incremental persistence is on.
func (c *Controller) Run(ctx context.Context, startYear int, startMonth time.Month, end time.Time) (Result, error) {
	var res Result
	if startMonth < time.January || startMonth > time.December {
		return res, fmt.Errorf("invalid start month %d", startMonth)
	}

	first := domain.NewMonthKey(startYear, startMonth).First(c.loc)
	for day := first; !day.After(end); day = day.AddDate(0, 1, 0) {
		key := domain.NewMonthKey(day.Year(), day.Month())
		res.Probed++

		if c.store.HasMonth(key) {
			c.logger.Debug("month already cached, skipping", zap.String("month", key.String()))
			res.Skipped++
			continue
		}

		articles, err := c.fetcher.Fetch(ctx, key)
		if err != nil {
			return res, fmt.Errorf("ingest month %s: %w", key, err)
		}

		reverse(articles)
		c.store.AppendMonth(key, articles)
		res.Fetched++
		res.Articles += len(articles)

		c.logger.Info("ingested month",
			zap.String("month", key.String()),
			zap.Int("articles", len(articles)))

		if c.persistEachMonth {
			if err := c.store.Persist(); err != nil {
				return res, fmt.Errorf("persist after %s: %w", key, err)
			}
		}
	}

	// With incremental persistence every fetched month is already on disk
	if !c.persistEachMonth || res.Fetched == 0 {
		if err := c.store.Persist(); err != nil {
			return res, fmt.Errorf("persist: %w", err)
		}
	}

	c.logger.Info("ingestion finished",
		zap.Int("probed", res.Probed),
		zap.Int("fetched", res.Fetched),
		zap.Int("skipped", res.Skipped),
		zap.Int("articles", res.Articles))
	return res, nil
}

// reverse turns the archive's newest-first day lists into chronological order
func reverse(articles []domain.Article) {
	for i, j := 0, len(articles)-1; i < j; i, j = i+1, j-1 {
		articles[i], articles[j] = articles[j], articles[i]
	}
}
