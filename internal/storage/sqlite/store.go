package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// maxStoredResponse bounds the response text kept in the transcript; full
// responses go back to the caller but history stays compact.
const maxStoredResponse = 500

// maxPreviewChars bounds session-list previews.
const maxPreviewChars = 100

type Store struct {
	db *sql.DB
}

// ExchangeRecord is one stored query/response pair of a session transcript.
type ExchangeRecord struct {
	SessionID string
	Seq       int
	Query     string
	Response  string
	DataUsed  bool
	ErrorKind string
	CreatedAt time.Time
}

// SessionRecord is one chat session row.
type SessionRecord struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionSummary is a session-list row with its last-message preview.
type SessionSummary struct {
	ID           string
	Title        string
	Preview      string
	MessageCount int
	UpdatedAt    time.Time
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if dir := filepath.Dir(dbPath); dir != "." && !strings.HasPrefix(dbPath, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_updated ON sessions(user_id, updated_at);

CREATE TABLE IF NOT EXISTS exchanges (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    query TEXT NOT NULL,
    response TEXT NOT NULL DEFAULT '',
    data_used INTEGER NOT NULL DEFAULT 0,
    error_kind TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS watchlist (
    user_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, symbol)
);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// AppendExchange records one exchange. It creates the session row on first
// use (with the given title), bumps updated_at, and assigns the next
// sequence number atomically.
func (s *Store) AppendExchange(ctx context.Context, userID, title string, rec ExchangeRecord) error {
	if strings.TrimSpace(rec.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	if len(rec.Response) > maxStoredResponse {
		rec.Response = rec.Response[:maxStoredResponse] + "..."
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, title)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET updated_at=CURRENT_TIMESTAMP
`, rec.SessionID, userID, title)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	dataUsed := 0
	if rec.DataUsed {
		dataUsed = 1
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO exchanges (session_id, seq, query, response, data_used, error_kind)
SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?
FROM exchanges WHERE session_id = ?
`, rec.SessionID, rec.Query, rec.Response, dataUsed, rec.ErrorKind, rec.SessionID)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// ListExchanges returns a session's full transcript, oldest first.
func (s *Store) ListExchanges(ctx context.Context, sessionID string) ([]ExchangeRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, seq, query, response, data_used, error_kind, created_at
FROM exchanges
WHERE session_id = ?
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	return scanExchanges(rows)
}

// RecentExchanges returns the last limit exchanges, oldest first.
func (s *Store) RecentExchanges(ctx context.Context, sessionID string, limit int) ([]ExchangeRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, seq, query, response, data_used, error_kind, created_at
FROM exchanges
WHERE session_id = ?
ORDER BY seq DESC
LIMIT ?
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent exchanges: %w", err)
	}
	defer rows.Close()

	recs, err := scanExchanges(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func scanExchanges(rows *sql.Rows) ([]ExchangeRecord, error) {
	var recs []ExchangeRecord
	for rows.Next() {
		var (
			rec      ExchangeRecord
			dataUsed int
		)
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Query, &rec.Response, &dataUsed, &rec.ErrorKind, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		rec.DataUsed = dataUsed != 0
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exchange rows: %w", err)
	}
	return recs, nil
}

// GetSession returns a session row, or nil when it does not exist.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, title, created_at, updated_at
FROM sessions
WHERE id = ?
LIMIT 1
`, sessionID)

	var rec SessionRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &rec, nil
}

// ListSessions returns a caller's sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]SessionSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.title, s.updated_at,
       (SELECT COUNT(*) FROM exchanges e WHERE e.session_id = s.id),
       COALESCE((SELECT e.query FROM exchanges e WHERE e.session_id = s.id ORDER BY e.seq DESC LIMIT 1), '')
FROM sessions s
WHERE s.user_id = ?
ORDER BY s.updated_at DESC, s.rowid DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.UpdatedAt, &sum.MessageCount, &sum.Preview); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if len(sum.Preview) > maxPreviewChars {
			sum.Preview = sum.Preview[:maxPreviewChars] + "..."
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}
	return summaries, nil
}

// DeleteSession removes a session and its exchanges.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
