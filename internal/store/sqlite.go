package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/fefe/internal/domain"
)

//go:embed schema.sql
var schema string

// SQLite stores the snapshot in a SQLite database
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Read loads the last written snapshot
func (s *SQLite) Read() (*Snapshot, error) {
	var writtenAt time.Time
	err := s.db.QueryRow("SELECT written_at FROM snapshots WHERE id = 1").Scan(&writtenAt)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot marker: %w", err)
	}

	articles, err := s.readArticles()
	if err != nil {
		return nil, err
	}
	months, err := s.readMonths()
	if err != nil {
		return nil, err
	}

	return &Snapshot{Articles: articles, Months: months}, nil
}

func (s *SQLite) readArticles() ([]domain.Article, error) {
	rows, err := s.db.Query(
		"SELECT id, published_at, body, tags FROM articles ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		var tags sql.NullString
		if err := rows.Scan(&a.ID, &a.PublishedAt, &a.Body, &tags); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if tags.Valid {
			if err := json.Unmarshal([]byte(tags.String), &a.Tags); err != nil {
				return nil, fmt.Errorf("%w: tags of %s: %v", ErrSnapshotCorrupt, a.ID, err)
			}
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	return articles, nil
}

func (s *SQLite) readMonths() ([]domain.MonthKey, error) {
	rows, err := s.db.Query("SELECT key FROM months ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var months []domain.MonthKey
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, domain.MonthKey(key))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}

	return months, nil
}

// Write replaces the stored snapshot in a single transaction
func (s *SQLite) Write(snap *Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM articles", "DELETE FROM months"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	insertArticle, err := tx.Prepare(
		"INSERT INTO articles (position, id, published_at, body, tags) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare article insert: %w", err)
	}
	defer insertArticle.Close()

	for i, a := range snap.Articles {
		var tags sql.NullString
		if a.Tags != nil {
			data, err := json.Marshal(a.Tags)
			if err != nil {
				return fmt.Errorf("marshal tags: %w", err)
			}
			tags = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := insertArticle.Exec(i, a.ID, a.PublishedAt, a.Body, tags); err != nil {
			return fmt.Errorf("insert article %s: %w", a.ID, err)
		}
	}

	for i, key := range snap.Months {
		if _, err := tx.Exec("INSERT INTO months (position, key) VALUES (?, ?)", i, key.String()); err != nil {
			return fmt.Errorf("insert month %s: %w", key, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO snapshots (id, written_at) VALUES (1, ?)",
		time.Now(),
	); err != nil {
		return fmt.Errorf("mark snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}
