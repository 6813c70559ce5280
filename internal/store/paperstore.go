package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
)

// PaperStore implements Store. Canonical records live in SQLite; the Bleve
// index answers search, aggregation, and count. Both are kept in step by
// SavePaper.
type PaperStore struct {
	db    *sql.DB
	index bleve.Index
}

// NewPaperStore opens or creates the paper database and search index at the
// given paths. Parent directories are created if they do not exist.
func NewPaperStore(dbPath, indexPath string) (*PaperStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	index, err := openIndex(indexPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PaperStore{db: db, index: index}, nil
}

// NewMemoryPaperStore creates a store backed by an in-memory database and
// index. Used by tests.
func NewMemoryPaperStore() (*PaperStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &PaperStore{db: db, index: index}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		abstract TEXT,
		authors TEXT,
		categories TEXT,
		update_date TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SavePaper upserts the record and (re)indexes it.
func (s *PaperStore) SavePaper(ctx context.Context, p *models.Paper) error {
	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}
	categoriesJSON, err := json.Marshal(p.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO papers (id, title, abstract, authors, categories, update_date)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, abstract=excluded.abstract, authors=excluded.authors,
		   categories=excluded.categories, update_date=excluded.update_date`,
		p.ID, p.Title, p.Abstract, string(authorsJSON), string(categoriesJSON), p.UpdateDate,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save paper: %v", ErrUnavailable, err)
	}
	return s.indexPaper(p)
}

// GetPaper returns the canonical record by id, or ErrNotFound.
func (s *PaperStore) GetPaper(ctx context.Context, id string) (*models.Paper, error) {
	var p models.Paper
	var authorsJSON, categoriesJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, abstract, authors, categories, update_date
		 FROM papers WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Abstract, &authorsJSON, &categoriesJSON, &p.UpdateDate)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get paper: %v", ErrUnavailable, err)
	}

	// Stored lists may predate normalization; coerce either shape.
	if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
		p.Authors = models.SplitList(authorsJSON)
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &p.Categories); err != nil {
		p.Categories = models.SplitList(categoriesJSON)
	}
	return &p, nil
}

// TotalPapers returns the number of stored records.
func (s *PaperStore) TotalPapers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count papers: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Close closes the database and the index.
func (s *PaperStore) Close() error {
	indexErr := s.index.Close()
	dbErr := s.db.Close()
	if indexErr != nil {
		return indexErr
	}
	return dbErr
}

// parseUpdateDate parses the record's date for indexing. Unparseable or
// missing dates index as the zero time so date sorts and range filters
// exclude them.
func parseUpdateDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
