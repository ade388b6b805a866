// Package store owns the article corpus and its persisted snapshot.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/fefe/internal/domain"
	"go.uber.org/zap"
)

// Store handles the corpus lifecycle: load, append, persist
type Store struct {
	corpus     *Corpus
	backend    Backend
	exportPath string
	logger     *zap.Logger
}

// New creates a Store with an empty corpus. exportPath may be empty to skip
// the training export on Persist.
func New(backend Backend, exportPath string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		corpus:     NewCorpus(),
		backend:    backend,
		exportPath: exportPath,
		logger:     logger,
	}
}

// Corpus returns the in-memory corpus
func (s *Store) Corpus() *Corpus {
	return s.corpus
}

// HasMonth reports whether a month is already ingested
func (s *Store) HasMonth(key domain.MonthKey) bool {
	return s.corpus.HasMonth(key)
}

// AppendMonth adds a fetched month to the corpus
func (s *Store) AppendMonth(key domain.MonthKey, articles []domain.Article) bool {
	added, skipped := s.corpus.AppendMonth(key, articles)
	if skipped > 0 {
		s.logger.Warn("skipped duplicate articles",
			zap.String("month", key.String()),
			zap.Int("skipped", skipped))
	}
	return added
}

// Load replaces the corpus with the persisted snapshot.
// A missing snapshot leaves an empty corpus and is not an error.
func (s *Store) Load() error {
	snap, err := s.backend.Read()
	if errors.Is(err, ErrSnapshotMissing) {
		s.logger.Info("no snapshot found, starting with an empty corpus")
		s.corpus = NewCorpus()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	corpus, err := FromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	s.corpus = corpus

	s.logger.Info("loaded snapshot",
		zap.Int("articles", corpus.Len()),
		zap.Int("months", len(snap.Months)),
		zap.Int("words", wordCount(snap.Articles)))
	return nil
}

// Persist writes the full snapshot and the training export
func (s *Store) Persist() error {
	if err := s.backend.Write(s.corpus.Snapshot()); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	if s.exportPath != "" {
		if err := s.Export(s.exportPath); err != nil {
			return err
		}
	}
	s.logger.Debug("persisted corpus",
		zap.Int("articles", s.corpus.Len()),
		zap.Int("months", len(s.corpus.months)))
	return nil
}

// Export writes the training JSONL file for the current corpus
func (s *Store) Export(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := WriteTrainingJSONL(f, s.corpus.articles); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	return nil
}

func wordCount(articles []domain.Article) int {
	n := 0
	for _, a := range articles {
		n += len(strings.Split(a.Body, " "))
	}
	return n
}
