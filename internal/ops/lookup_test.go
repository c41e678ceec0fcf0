package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/pricing"
	"github.com/hpungsan/lanequote/internal/quote"
)

func TestTerms(t *testing.T) {
	svc := newTestService(t, Providers{})
	ctx := context.Background()

	out, err := svc.Terms(ctx, TermsInput{FromCountry: "UAE", ToCountry: "KSA"})
	require.NoError(t, err)
	require.Equal(t, pricing.FallbackTerms, out.Terms)

	seed(t, svc, db.TermsList,
		[]string{"DEFAULT", "", "Default terms."},
		[]string{"UAE", "KSA", "Pair terms."},
	)

	out, err = svc.Terms(ctx, TermsInput{FromCountry: "uae", ToCountry: "ksa"})
	require.NoError(t, err)
	require.Equal(t, "Pair terms.", out.Terms)

	out, err = svc.Terms(ctx, TermsInput{FromCountry: "KSA", ToCountry: "UAE"})
	require.NoError(t, err)
	require.Equal(t, "Default terms.", out.Terms)

	_, err = svc.Terms(ctx, TermsInput{FromCountry: "UAE"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestDistance(t *testing.T) {
	ctx := context.Background()
	lane := quote.Lane{FromCountry: "UAE", FromCity: "Dubai", ToCountry: "KSA", ToCity: "Riyadh"}

	t.Run("no provider", func(t *testing.T) {
		svc := newTestService(t, Providers{})
		out, err := svc.Distance(ctx, lane)
		require.NoError(t, err)
		require.False(t, out.Found)
		require.Equal(t, "no_provider", out.Source)
	})

	t.Run("provider then cache", func(t *testing.T) {
		router := &fakeRouter{meters: 987_654}
		svc := newTestService(t, Providers{Router: router})

		out, err := svc.Distance(ctx, lane)
		require.NoError(t, err)
		require.True(t, out.Found)
		require.Equal(t, "api", out.Source)
		requireDecimal(t, "987.65", out.DistanceKM)

		out, err = svc.Distance(ctx, quote.Lane{FromCountry: "uae", FromCity: "DUBAI", ToCountry: "ksa", ToCity: "riyadh"})
		require.NoError(t, err)
		require.Equal(t, "cache", out.Source)
		require.EqualValues(t, 1, router.routes.Load())
	})

	t.Run("provider failure", func(t *testing.T) {
		svc := newTestService(t, Providers{Router: &fakeRouter{fail: true}})
		out, err := svc.Distance(ctx, lane)
		require.NoError(t, err)
		require.False(t, out.Found)
		require.Equal(t, "failed", out.Source)

		n, err := db.CountRows(ctx, svc.DB, db.DistanceCache)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("incomplete lane", func(t *testing.T) {
		svc := newTestService(t, Providers{})
		_, err := svc.Distance(ctx, quote.Lane{FromCountry: "UAE", FromCity: "Dubai"})
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{text: "Acme summary."}
	svc := newTestService(t, Providers{Generator: gen})

	out, err := svc.Summary(ctx, "  ")
	require.NoError(t, err)
	require.Equal(t, pricing.DefaultSummary, out.Summary)
	require.Equal(t, "default", out.Source)
	require.Zero(t, gen.calls.Load())

	out, err = svc.Summary(ctx, "Acme")
	require.NoError(t, err)
	require.Equal(t, "Acme summary.", out.Summary)
	require.Equal(t, "api", out.Source)

	out, err = svc.Summary(ctx, "ACME")
	require.NoError(t, err)
	require.Equal(t, "cache", out.Source)
	require.EqualValues(t, 1, gen.calls.Load())
}

func TestCurrencies(t *testing.T) {
	svc := newTestService(t, Providers{})
	svc.Config.DefaultCurrency = "AED"

	out, err := svc.Currencies(context.Background())
	require.NoError(t, err)
	require.Empty(t, out.Currencies)
	require.NotNil(t, out.Currencies)

	seed(t, svc, db.RateList,
		[]string{box12, "5", "SAR"},
		[]string{box12, "5", "AED"},
		[]string{"Lorry 5 Ton", "3", "aed"},
	)
	out, err = svc.Currencies(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Currencies, 2)
	require.Equal(t, "AED", out.DefaultCurrency)
}

func TestLog_Pagination(t *testing.T) {
	svc := newTestService(t, Providers{})
	ctx := context.Background()
	seed(t, svc, db.PriceList, []string{"UAE", "Dubai", "KSA", "Riyadh", box12, "AED", "100"})

	for range 3 {
		_, err := svc.Quote(ctx, dubaiRiyadh())
		require.NoError(t, err)
	}

	out, err := svc.Log(ctx, LogInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.Equal(t, Pagination{Limit: 2, Offset: 0, HasMore: true, Total: 3}, out.Pagination)

	out, err = svc.Log(ctx, LogInput{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.False(t, out.Pagination.HasMore)

	out, err = svc.Log(ctx, LogInput{Limit: 1000})
	require.NoError(t, err)
	require.Equal(t, MaxListLimit, out.Pagination.Limit)

	_, err = svc.Log(ctx, LogInput{Offset: -1})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestLog_Empty(t *testing.T) {
	svc := newTestService(t, Providers{})
	out, err := svc.Log(context.Background(), LogInput{})
	require.NoError(t, err)
	require.NotNil(t, out.Items)
	require.Equal(t, DefaultListLimit, out.Pagination.Limit)
}
