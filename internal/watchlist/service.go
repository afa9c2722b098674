// Package watchlist manages the caller's permitted symbol set and decorates
// it with live quotes for display.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/manas15/Financial-Agent/internal/dataflows"
	"github.com/manas15/Financial-Agent/internal/storage/sqlite"
)

var ErrInvalidSymbol = errors.New("invalid symbol")

const enrichConcurrency = 4

// Quoter fetches the current quote for one symbol.
type Quoter interface {
	QuoteProfile(ctx context.Context, symbol string) (*dataflows.QuoteProfile, error)
}

// Entry is one watchlist row, optionally enriched with a live quote. Quote
// fields stay nil when enrichment fails so the UI can render a gap.
type Entry struct {
	Symbol        string           `json:"symbol"`
	AddedAt       time.Time        `json:"added_at"`
	Name          string           `json:"name,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Change        *decimal.Decimal `json:"change,omitempty"`
	ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
	MarketState   string           `json:"market_state,omitempty"`
}

type Service struct {
	store  *sqlite.Store
	quoter Quoter
}

func New(store *sqlite.Store, quoter Quoter) *Service {
	return &Service{store: store, quoter: quoter}
}

// Add validates, normalizes, and saves a symbol. Returns the stored form.
func (s *Service) Add(ctx context.Context, userID, symbol string) (string, error) {
	sym := dataflows.NormalizeSymbol(symbol)
	if err := dataflows.ValidateSymbol(sym); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSymbol, err)
	}
	if err := s.store.WatchlistAdd(ctx, userID, sym); err != nil {
		return "", err
	}
	return sym, nil
}

// Remove deletes a symbol; sqlite.ErrNotFound when it was never added.
func (s *Service) Remove(ctx context.Context, userID, symbol string) error {
	return s.store.WatchlistRemove(ctx, userID, dataflows.NormalizeSymbol(symbol))
}

// List returns the caller's watchlist with live quotes fetched under a small
// concurrency bound. A failed quote never fails the listing.
func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := s.store.WatchlistEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(rows))
	sem := make(chan struct{}, enrichConcurrency)
	var wg sync.WaitGroup
	for i, row := range rows {
		entries[i] = Entry{Symbol: row.Symbol, AddedAt: row.AddedAt}

		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			quote, err := s.quoter.QuoteProfile(ctx, symbol)
			if err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("symbol", symbol).Msg("quote enrichment skipped")
				return
			}
			entries[i].Name = quote.Name
			entries[i].Price = &quote.Price
			entries[i].Change = &quote.Change
			entries[i].ChangePercent = &quote.ChangePercent
			entries[i].MarketState = quote.MarketState
		}(i, row.Symbol)
	}
	wg.Wait()

	return entries, nil
}
