package watchlist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manas15/Financial-Agent/internal/dataflows"
	"github.com/manas15/Financial-Agent/internal/storage/sqlite"
)

type fakeQuoter struct {
	err error
}

func (q *fakeQuoter) QuoteProfile(ctx context.Context, symbol string) (*dataflows.QuoteProfile, error) {
	if q.err != nil {
		return nil, q.err
	}
	return &dataflows.QuoteProfile{
		Symbol:      symbol,
		Name:        symbol + " Inc",
		Price:       decimal.NewFromFloat(42.5),
		MarketState: "REGULAR",
	}, nil
}

func newTestService(t *testing.T, quoter Quoter) *Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, quoter)
}

func TestAddNormalizesSymbol(t *testing.T) {
	svc := newTestService(t, &fakeQuoter{})

	sym, err := svc.Add(context.Background(), "u1", " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sym)

	entries, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "AAPL", entries[0].Symbol)
}

func TestAddRejectsInvalidSymbol(t *testing.T) {
	svc := newTestService(t, &fakeQuoter{})

	_, err := svc.Add(context.Background(), "u1", "not a symbol!!")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestAddDuplicate(t *testing.T) {
	svc := newTestService(t, &fakeQuoter{})
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "AAPL")
	require.NoError(t, err)

	_, err = svc.Add(ctx, "u1", "aapl")
	assert.ErrorIs(t, err, sqlite.ErrDuplicate)
}

func TestRemoveMissing(t *testing.T) {
	svc := newTestService(t, &fakeQuoter{})

	err := svc.Remove(context.Background(), "u1", "AAPL")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestListEnrichesWithQuotes(t *testing.T) {
	svc := newTestService(t, &fakeQuoter{})
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "AAPL")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", "MSFT")
	require.NoError(t, err)

	entries, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, e := range entries {
		require.NotNil(t, e.Price, "quote fields should be filled for %s", e.Symbol)
		assert.True(t, e.Price.Equal(decimal.NewFromFloat(42.5)))
		assert.Equal(t, e.Symbol+" Inc", e.Name)
		assert.Equal(t, "REGULAR", e.MarketState)
		assert.False(t, e.AddedAt.IsZero())
	}
}

func TestListToleratesQuoteFailures(t *testing.T) {
	svc := newTestService(t, &fakeQuoter{err: errors.New("provider down")})
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "AAPL")
	require.NoError(t, err)

	entries, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "AAPL", entries[0].Symbol)
	assert.Nil(t, entries[0].Price)
	assert.Nil(t, entries[0].Change)
	assert.Empty(t, entries[0].Name)
}
