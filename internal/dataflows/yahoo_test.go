package dataflows

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodStart(t *testing.T) {
	now := time.Now()

	tests := []struct {
		in         string
		wantPeriod string
		wantBefore time.Duration
	}{
		{"3mo", "3mo", 100 * 24 * time.Hour},
		{"6mo", "6mo", 190 * 24 * time.Hour},
		{"1y", "1y", 370 * 24 * time.Hour},
		{"2y", "2y", 740 * 24 * time.Hour},
		{"", "1y", 370 * 24 * time.Hour},
		{"yolo", "1y", 370 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			period, start := periodStart(tt.in)
			assert.Equal(t, tt.wantPeriod, period)
			assert.True(t, start.Before(now))
			assert.True(t, start.After(now.Add(-tt.wantBefore)))
		})
	}
}

func TestCompareRejectsSingleSymbol(t *testing.T) {
	yc := NewYahooClient()
	_, err := yc.Compare(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2")
}

func TestQuoteProfileRejectsBadSymbol(t *testing.T) {
	yc := NewYahooClient()
	_, err := yc.QuoteProfile(context.Background(), "NOT A SYMBOL")
	assert.Error(t, err)
}

// Live Yahoo round trip; enable with YAHOO_LIVE_TEST=1.
func TestQuoteProfileLive(t *testing.T) {
	if os.Getenv("YAHOO_LIVE_TEST") == "" {
		t.Skip("set YAHOO_LIVE_TEST=1 to run live Yahoo Finance tests")
	}

	yc := NewYahooClient()
	profile, err := yc.QuoteProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", profile.Symbol)
	assert.True(t, profile.Price.IsPositive())
}
