package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
    id TEXT PRIMARY KEY,
    room_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    style TEXT,
    prompt TEXT NOT NULL,
    model TEXT NOT NULL,
    provider TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    cost REAL NOT NULL DEFAULT 0,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_calls_room_id ON calls(room_id);
CREATE INDEX IF NOT EXISTS idx_calls_timestamp ON calls(timestamp);
CREATE INDEX IF NOT EXISTS idx_calls_provider ON calls(provider);
`

const imageCountExpr = `COALESCE(SUM(CASE WHEN status = 'ok' AND operation != 'chat' THEN 1 ELSE 0 END), 0)`

// Store is the usage ledger. It records calls to the image and chat
// services; room images themselves are never written here.
type Store struct {
	db *sql.DB
}

func NewStore(dataDir string) (*Store, error) {
	return NewStoreWithPath(filepath.Join(dataDir, "ledger.db"))
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Image and chat calls record concurrently; one connection serializes them.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e, filling in ID and Timestamp when they are unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (id, room_id, operation, style, prompt, model, provider, status, error, duration_ms, cost, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RoomID, string(e.Operation), nullString(e.Style), e.Prompt, e.Model, e.Provider,
		string(e.Status), nullString(e.Error), e.Duration.Milliseconds(), e.Cost, e.Timestamp.UTC())
	return err
}

func (s *Store) ListByRoom(ctx context.Context, roomID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, operation, style, prompt, model, provider, status, error, duration_ms, cost, timestamp
		 FROM calls WHERE room_id = ? ORDER BY timestamp ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, operation, style, prompt, model, provider, status, error, duration_ms, cost, timestamp
		 FROM calls ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var op, status string
		var style, errText sql.NullString
		var durationMs int64
		if err := rows.Scan(&e.ID, &e.RoomID, &op, &style, &e.Prompt, &e.Model, &e.Provider,
			&status, &errText, &durationMs, &e.Cost, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Operation = Operation(op)
		e.Status = Status(status)
		e.Style = style.String
		e.Error = errText.String
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) CostByDateRange(ctx context.Context, start, end time.Time) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), `+imageCountExpr+`, COUNT(*)
		 FROM calls WHERE timestamp >= ? AND timestamp < ?`,
		start.UTC(), end.UTC())
	return scanSummary(row)
}

func (s *Store) TotalCost(ctx context.Context) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), `+imageCountExpr+`, COUNT(*) FROM calls`)
	return scanSummary(row)
}

func (s *Store) RoomCost(ctx context.Context, roomID string) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), `+imageCountExpr+`, COUNT(*)
		 FROM calls WHERE room_id = ?`, roomID)
	return scanSummary(row)
}

func (s *Store) CostByProvider(ctx context.Context) ([]ProviderCostSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, COALESCE(SUM(cost), 0), `+imageCountExpr+`
		 FROM calls GROUP BY provider ORDER BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ProviderCostSummary
	for rows.Next() {
		var ps ProviderCostSummary
		if err := rows.Scan(&ps.Provider, &ps.TotalCost, &ps.ImageCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ps)
	}
	return summaries, rows.Err()
}

func scanSummary(row *sql.Row) (*CostSummary, error) {
	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
