package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// WatchlistEntry is one saved symbol of a user's watchlist.
type WatchlistEntry struct {
	Symbol  string
	AddedAt time.Time
}

// WatchlistAdd saves a symbol. Returns ErrDuplicate when already present.
func (s *Store) WatchlistAdd(ctx context.Context, userID, symbol string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("symbol is required")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO watchlist (user_id, symbol) VALUES (?, ?)
`, userID, symbol)
	if err != nil {
		if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicate
		}
		return fmt.Errorf("add watchlist symbol: %w", err)
	}
	return nil
}

// WatchlistRemove deletes a symbol. Returns ErrNotFound when absent.
func (s *Store) WatchlistRemove(ctx context.Context, userID, symbol string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	res, err := s.db.ExecContext(ctx, `
DELETE FROM watchlist WHERE user_id = ? AND symbol = ?
`, userID, symbol)
	if err != nil {
		return fmt.Errorf("remove watchlist symbol: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// WatchlistSymbols returns a user's symbols in insertion order.
func (s *Store) WatchlistSymbols(ctx context.Context, userID string) ([]string, error) {
	entries, err := s.WatchlistEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		symbols = append(symbols, e.Symbol)
	}
	return symbols, nil
}

// WatchlistEntries returns a user's watchlist rows in insertion order.
func (s *Store) WatchlistEntries(ctx context.Context, userID string) ([]WatchlistEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT symbol, added_at FROM watchlist
WHERE user_id = ?
ORDER BY added_at ASC, rowid ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		if err := rows.Scan(&e.Symbol, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("watchlist rows: %w", err)
	}
	return entries, nil
}
