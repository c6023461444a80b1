// Package storage persists completed research sessions to SQLite.
//
// Information Hiding:
// - SQLite connection management hidden behind the History type
// - Schema and serialization details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/scriba/model"
)

// Record is one completed research session as persisted.
type Record struct {
	ID              string
	Question        string
	Model           string
	ModelID         string
	Document        string
	Sources         []model.SourceInfo
	Usage           model.TokenUsageInfo
	TerminatedEarly bool
	CreatedAt       time.Time
}

// History stores completed research responses.
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the history database at the given path.
// Parent directories are created if they don't exist.
func OpenHistory(path string) (*History, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	h := &History{db: db}
	if err := h.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return h, nil
}

// NewHistoryInMemory creates an in-memory history (useful for testing).
func NewHistoryInMemory() (*History, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	h := &History{db: db}
	if err := h.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS research_history (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			model TEXT NOT NULL,
			model_id TEXT NOT NULL,
			document TEXT NOT NULL,
			sources TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			cost_usd REAL NOT NULL,
			terminated_early INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_created
		ON research_history(created_at DESC);
	`

	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save persists one completed response. A zero ID gets a fresh UUID; a zero
// CreatedAt gets the current time.
func (h *History) Save(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	sources := rec.Sources
	if sources == nil {
		sources = []model.SourceInfo{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return "", fmt.Errorf("failed to serialize sources: %w", err)
	}

	terminated := 0
	if rec.TerminatedEarly {
		terminated = 1
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO research_history
		(id, question, model, model_id, document, sources, input_tokens, output_tokens, total_tokens, cost_usd, terminated_early, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Question,
		rec.Model,
		rec.ModelID,
		rec.Document,
		string(sourcesJSON),
		rec.Usage.InputTokens,
		rec.Usage.OutputTokens,
		rec.Usage.TotalTokens,
		rec.Usage.CostUSD,
		terminated,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store research record: %w", err)
	}
	return rec.ID, nil
}

// SaveResponse persists a finished response envelope.
func (h *History) SaveResponse(ctx context.Context, resp *model.ResearchResponse) (string, error) {
	return h.Save(ctx, Record{
		Question:        resp.Query,
		Model:           resp.Model,
		ModelID:         resp.ModelID,
		Document:        resp.Document,
		Sources:         resp.Sources,
		Usage:           resp.Usage,
		TerminatedEarly: resp.TerminatedEarly,
	})
}

// Recent returns the most recent records, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, question, model, model_id, document, sources, input_tokens, output_tokens, total_tokens, cost_usd, terminated_early, created_at
		FROM research_history
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []Record{} // Start with empty slice, not nil
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return records, nil
}

// Get returns one record by ID. Returns nil, nil if not found.
func (h *History) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, question, model, model_id, document, sources, input_tokens, output_tokens, total_tokens, cost_usd, terminated_early, created_at
		FROM research_history
		WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var sourcesJSON string
	var terminated int
	var createdAt int64

	err := rows.Scan(
		&rec.ID,
		&rec.Question,
		&rec.Model,
		&rec.ModelID,
		&rec.Document,
		&sourcesJSON,
		&rec.Usage.InputTokens,
		&rec.Usage.OutputTokens,
		&rec.Usage.TotalTokens,
		&rec.Usage.CostUSD,
		&terminated,
		&createdAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(sourcesJSON), &rec.Sources); err != nil {
		return Record{}, fmt.Errorf("invalid sources payload in database: %w", err)
	}
	rec.TerminatedEarly = terminated != 0
	rec.CreatedAt = time.Unix(createdAt, 0)
	return rec, nil
}
