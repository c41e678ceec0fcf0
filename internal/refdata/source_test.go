package refdata

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/quote"
)

func setupSource(t *testing.T, opts ...Option) (*Source, *sql.DB) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database, time.Minute, opts...), database
}

var dubaiRiyadh = quote.Lane{FromCountry: "UAE", FromCity: "Dubai", ToCountry: "KSA", ToCity: "Riyadh"}

func TestSnapshot_ServedUntilExpiry(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	src, database := setupSource(t, WithClock(clock))
	ctx := context.Background()

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Rates)

	// Written behind the Source's back: invisible until expiry.
	require.NoError(t, db.AppendRows(ctx, database, db.RateList, [][]string{{"Lorry 5 Ton", "3", "AED"}}))

	snap, err = src.Snapshot(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Rates)

	now = now.Add(2 * time.Minute)
	snap, err = src.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Rates, 1)
}

func TestAppendDistance_VisibleImmediately(t *testing.T) {
	src, _ := setupSource(t)
	ctx := context.Background()

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	_, ok := snap.FindDistance(dubaiRiyadh)
	require.False(t, ok)

	entry := quote.DistanceEntry{Lane: dubaiRiyadh, DistanceKM: decimal.NewNullDecimal(decimal.RequireFromString("1200"))}
	require.NoError(t, src.AppendDistance(ctx, entry))

	snap, err = src.Snapshot(ctx)
	require.NoError(t, err)
	km, ok := snap.FindDistance(quote.Lane{FromCountry: "uae", FromCity: "DUBAI", ToCountry: "ksa", ToCity: "riyadh"})
	require.True(t, ok)
	require.True(t, km.Equal(decimal.NewFromInt(1200)))
}

func TestAppendSummary_VisibleImmediately(t *testing.T) {
	src, _ := setupSource(t)
	ctx := context.Background()

	_, err := src.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, src.AppendSummary(ctx, quote.SummaryEntry{CompanyName: "Acme", SummaryText: "Acme moves things."}))

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	text, ok := snap.FindSummary("  ACME ")
	require.True(t, ok)
	require.Equal(t, "Acme moves things.", text)
}

func TestImportRows_Replace(t *testing.T) {
	src, _ := setupSource(t)
	ctx := context.Background()

	require.NoError(t, src.ImportRows(ctx, db.RateList, [][]string{{"Lorry 5 Ton", "3", "AED"}}, false))
	require.NoError(t, src.ImportRows(ctx, db.RateList, [][]string{{"Lorry 7 Ton", "4", "SAR"}}, false))

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Rates, 2)

	require.NoError(t, src.ImportRows(ctx, db.RateList, [][]string{{"Lorry 5 Ton", "3.5", "AED"}}, true))

	snap, err = src.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Rates, 1)
	require.Equal(t, "3.5", snap.Rates[0].RatePerKM.Decimal.String())
}

func TestSnapshot_ClosedDatabase(t *testing.T) {
	src, database := setupSource(t)
	database.Close()

	_, err := src.Snapshot(context.Background())
	require.Error(t, err)
}

func TestSnapshot_ConcurrentCallers(t *testing.T) {
	src, database := setupSource(t)
	ctx := context.Background()
	require.NoError(t, db.AppendRows(ctx, database, db.RateList, [][]string{{"Lorry 5 Ton", "3", "AED"}}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := src.Snapshot(ctx)
			if err != nil {
				t.Errorf("Snapshot() error = %v", err)
				return
			}
			if len(snap.Rates) != 1 {
				t.Errorf("len(Rates) = %d, want 1", len(snap.Rates))
			}
		}()
	}
	wg.Wait()
}
