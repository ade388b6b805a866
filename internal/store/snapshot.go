package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pbaille/fefe/internal/domain"
)

var (
	// ErrSnapshotMissing is returned by a Backend when nothing has been persisted yet
	ErrSnapshotMissing = errors.New("snapshot missing")
	// ErrSnapshotCorrupt wraps malformed persisted data
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")
)

// Snapshot is the full persisted state of a corpus
type Snapshot struct {
	Articles []domain.Article  `json:"articles"`
	Months   []domain.MonthKey `json:"months"`
}

// Backend reads and writes whole snapshots. Last write wins.
type Backend interface {
	Read() (*Snapshot, error)
	Write(*Snapshot) error
}

// JSONFile stores the snapshot as one indented JSON document
type JSONFile struct {
	Path string
}

// NewJSONFile creates a JSON file backend
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

// Read loads the snapshot file
func (f *JSONFile) Read() (*Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, f.Path, err)
	}
	return &snap, nil
}

// Write replaces the snapshot file
func (f *JSONFile) Write(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	out := *snap
	if out.Articles == nil {
		out.Articles = []domain.Article{}
	}
	if out.Months == nil {
		out.Months = []domain.MonthKey{}
	}

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
