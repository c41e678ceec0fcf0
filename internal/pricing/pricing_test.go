package pricing

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/quote"
	"github.com/hpungsan/lanequote/internal/refdata"
)

var dubaiRiyadh = quote.Lane{FromCountry: "UAE", FromCity: "Dubai", ToCountry: "KSA", ToCity: "Riyadh"}

const box = "Box - 2 Axle 12M"

// fakeRouter counts calls and answers from fixed tables.
type fakeRouter struct {
	points   map[string]quote.Point
	meters   float64
	delay    time.Duration
	fail     error
	geocodes atomic.Int32
	routes   atomic.Int32
	queries  sync.Map
}

func newFakeRouter(meters float64) *fakeRouter {
	return &fakeRouter{
		points: map[string]quote.Point{
			"Dubai, United Arab Emirates": {Lat: 25.2, Lon: 55.27},
			"Riyadh, Saudi Arabia":        {Lat: 24.71, Lon: 46.67},
			"Muscat, Oman":                {Lat: 23.58, Lon: 58.4},
		},
		meters: meters,
	}
}

func (f *fakeRouter) Geocode(ctx context.Context, text string) (quote.Point, bool, error) {
	f.geocodes.Add(1)
	f.queries.Store(text, true)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return quote.Point{}, false, ctx.Err()
		}
	}
	if f.fail != nil {
		return quote.Point{}, false, f.fail
	}
	p, ok := f.points[text]
	return p, ok, nil
}

func (f *fakeRouter) DrivingDistance(ctx context.Context, from, to quote.Point) (float64, bool, error) {
	f.routes.Add(1)
	return f.meters, true, nil
}

// fakeGenerator counts calls.
type fakeGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fixture struct {
	db  *sql.DB
	ref *refdata.Source
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return &fixture{db: database, ref: refdata.New(database, time.Hour)}
}

func (f *fixture) rows(t *testing.T, table db.Table, rows ...[]string) {
	t.Helper()
	require.NoError(t, db.AppendRows(context.Background(), f.db, table, rows))
	f.ref.Invalidate()
}

func (f *fixture) engine(router Router) *Engine {
	return NewEngine(f.ref, NewDistanceResolver(f.ref, router, time.Second, time.Hour, nil), nil)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve_EstimatedFromCachedDistance(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.RateList, []string{box, "5.0", "AED"})
	f.rows(t, db.DistanceCache, []string{"UAE", "Dubai", "KSA", "Riyadh", "1200.0"})
	router := newFakeRouter(999000)

	res := f.engine(router).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})

	require.Equal(t, KindEstimated, res.Kind)
	require.True(t, res.Price.Equal(dec("6000")), "price = %s", res.Price)
	require.Equal(t, "AED", res.Currency)
	require.True(t, res.DistanceKM.Equal(dec("1200")))
	require.Equal(t, "Estimated (Cache)", res.Status())
	require.Zero(t, router.geocodes.Load())
}

func TestResolve_FoundIgnoresRateCard(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.PriceList, []string{"UAE", "Dubai", "KSA", "Riyadh", box, "AED", "5500.0"})
	f.rows(t, db.RateList, []string{box, "5.0", "AED"})
	f.rows(t, db.DistanceCache, []string{"UAE", "Dubai", "KSA", "Riyadh", "1200.0"})

	res := f.engine(nil).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})

	require.Equal(t, KindFound, res.Kind)
	require.True(t, res.Price.Equal(dec("5500")))
	require.Equal(t, "AED", res.Currency)
	require.Equal(t, "Price Found", res.Status())
}

func TestResolve_FoundCaseInsensitiveLane(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.PriceList, []string{"UAE", "Dubai", "KSA", "Riyadh", box, "AED", "5500"})

	for _, lane := range []quote.Lane{
		{FromCountry: "uae", FromCity: "dubai", ToCountry: "ksa", ToCity: "riyadh"},
		{FromCountry: "UAE", FromCity: "DUBAI", ToCountry: "KSA", ToCity: " Riyadh "},
	} {
		res := f.engine(nil).Resolve(context.Background(), Request{Lane: lane, TruckType: box, Currency: "aed"})
		require.Equal(t, KindFound, res.Kind, "lane %+v", lane)
		require.True(t, res.Price.Equal(dec("5500")))
	}
}

func TestResolve_ZeroPriceIsFound(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.PriceList, []string{"UAE", "Dubai", "KSA", "Riyadh", box, "AED", "0"})

	res := f.engine(nil).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})
	require.Equal(t, KindFound, res.Kind)
	require.True(t, res.Price.IsZero())
}

func TestResolve_UnparseablePriceFallsThrough(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.PriceList, []string{"UAE", "Dubai", "KSA", "Riyadh", box, "AED", "TBD"})
	f.rows(t, db.RateList, []string{box, "5", "AED"})
	f.rows(t, db.DistanceCache, []string{"UAE", "Dubai", "KSA", "Riyadh", "100"})

	res := f.engine(nil).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})
	require.Equal(t, KindEstimated, res.Kind)
	require.True(t, res.Price.Equal(dec("500")))
}

func TestResolve_DuplicatePriceRowsFirstWins(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.PriceList,
		[]string{"UAE", "Dubai", "KSA", "Riyadh", box, "AED", "5500"},
		[]string{"uae", "dubai", "ksa", "riyadh", box, "AED", "7000"},
	)

	res := f.engine(nil).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})
	require.True(t, res.Price.Equal(dec("5500")))
}

func TestResolve_NoRate(t *testing.T) {
	tests := []struct {
		name   string
		router Router
		cached bool
	}{
		{"with provider", newFakeRouter(1000000), false},
		{"with cached distance", nil, true},
		{"with neither", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.rows(t, db.RateList, []string{box, "5.0", "SAR"})
			if tt.cached {
				f.rows(t, db.DistanceCache, []string{"UAE", "Dubai", "KSA", "Riyadh", "1200"})
			}

			res := f.engine(tt.router).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})
			require.Equal(t, KindFailed, res.Kind)
			require.Equal(t, ReasonNoRate, res.Reason)
			require.Equal(t, "Estimation Failed (No Rate for AED)", res.Status())
			require.False(t, res.HasPrice())
		})
	}
}

func TestResolve_EstimatedFromProvider(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.RateList, []string{box, "2.5", "AED"})
	router := newFakeRouter(1000123.456)

	res := f.engine(router).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})

	require.Equal(t, KindEstimated, res.Kind)
	require.Equal(t, "Estimated (API)", res.Status())
	require.True(t, res.DistanceKM.Equal(dec("1000.12")), "km = %s", res.DistanceKM)
	require.True(t, res.Price.Equal(dec("2500.3")), "price = %s", res.Price)

	_, ok := router.queries.Load("Dubai, United Arab Emirates")
	require.True(t, ok, "from city should be geocoded with the full country name")
	_, ok = router.queries.Load("Riyadh, Saudi Arabia")
	require.True(t, ok, "to city should be geocoded with the full country name")
}

func TestResolve_MissingAPIKey(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.RateList, []string{box, "5.0", "AED"})

	res := f.engine(nil).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})
	require.Equal(t, ReasonMissingAPIKey, res.Reason)
	require.Equal(t, "Not Found (No API Key)", res.Status())
}

func TestResolve_DistanceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.RateList, []string{box, "5.0", "AED"})
	router := newFakeRouter(1000)

	res := f.engine(router).Resolve(context.Background(), Request{
		Lane:      quote.Lane{FromCountry: "UAE", FromCity: "Atlantis", ToCountry: "KSA", ToCity: "Riyadh"},
		TruckType: box,
		Currency:  "AED",
	})
	require.Equal(t, ReasonDistanceUnavailable, res.Reason)
	require.Equal(t, "Estimation Failed (API Error)", res.Status())
}

func TestResolve_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.db.Close()

	res := f.engine(nil).Resolve(context.Background(), Request{Lane: dubaiRiyadh, TruckType: box, Currency: "AED"})
	require.Equal(t, ReasonStoreUnavailable, res.Reason)
	require.Equal(t, "Not Found (Store Unavailable)", res.Status())
}

func TestDistance_SecondCallUsesCache(t *testing.T) {
	f := newFixture(t)
	router := newFakeRouter(1200000)
	r := NewDistanceResolver(f.ref, router, time.Second, time.Hour, nil)
	ctx := context.Background()

	km, outcome := r.Lookup(ctx, dubaiRiyadh)
	require.Equal(t, DistanceFetched, outcome)
	require.True(t, km.Equal(dec("1200")))

	km, outcome = r.Lookup(ctx, quote.Lane{FromCountry: "uae", FromCity: "DUBAI", ToCountry: "ksa", ToCity: "riyadh"})
	require.Equal(t, DistanceCached, outcome)
	require.True(t, km.Equal(dec("1200")))

	require.EqualValues(t, 1, router.routes.Load())
	require.EqualValues(t, 2, router.geocodes.Load())

	n, err := db.CountRows(ctx, f.db, db.DistanceCache)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDistance_ConcurrentSameLaneOneAppend(t *testing.T) {
	f := newFixture(t)
	router := newFakeRouter(500000)
	router.delay = 50 * time.Millisecond
	r := NewDistanceResolver(f.ref, router, time.Second, time.Hour, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km, ok := r.Distance(ctx, dubaiRiyadh)
			if !ok || !km.Equal(dec("500")) {
				t.Errorf("Distance() = %s, %v", km, ok)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, router.routes.Load())
	n, err := db.CountRows(ctx, f.db, db.DistanceCache)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDistance_GeocodeFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	router := newFakeRouter(1000)
	router.fail = fmt.Errorf("geocoder down")
	r := NewDistanceResolver(f.ref, router, time.Second, time.Hour, nil)

	_, ok := r.Distance(context.Background(), dubaiRiyadh)
	require.False(t, ok)
	require.Zero(t, router.routes.Load())

	n, err := db.CountRows(context.Background(), f.db, db.DistanceCache)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDistance_TimeoutIsFailure(t *testing.T) {
	f := newFixture(t)
	router := newFakeRouter(1000)
	router.delay = time.Second
	r := NewDistanceResolver(f.ref, router, 20*time.Millisecond, time.Hour, nil)

	_, outcome := r.Lookup(context.Background(), dubaiRiyadh)
	require.Equal(t, DistanceFailed, outcome)

	n, err := db.CountRows(context.Background(), f.db, db.DistanceCache)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDistance_FirstCachedRowWins(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.DistanceCache,
		[]string{"UAE", "Dubai", "KSA", "Riyadh", "1200"},
		[]string{"UAE", "Dubai", "KSA", "Riyadh", "1300"},
	)
	r := NewDistanceResolver(f.ref, nil, time.Second, time.Hour, nil)

	km, ok := r.Distance(context.Background(), dubaiRiyadh)
	require.True(t, ok)
	require.True(t, km.Equal(dec("1200")))
}

func TestDistance_NoProvider(t *testing.T) {
	f := newFixture(t)
	r := NewDistanceResolver(f.ref, nil, time.Second, time.Hour, nil)

	_, outcome := r.Lookup(context.Background(), dubaiRiyadh)
	require.Equal(t, DistanceNoProvider, outcome)
	require.False(t, outcome.Found())
}

func TestSummary_BlankCompanyNoCalls(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{text: "never"}
	r := NewSummaryResolver(f.ref, gen, time.Second, time.Hour, nil)

	for _, company := range []string{"", "   ", "\t"} {
		text, source := r.Lookup(context.Background(), company)
		require.Equal(t, DefaultSummary, text)
		require.Equal(t, SummaryDefault, source)
	}
	require.Zero(t, gen.calls.Load())
}

func TestSummary_GeneratesOnceThenCaches(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{text: "  Acme is a regional freight forwarder.\n"}
	r := NewSummaryResolver(f.ref, gen, time.Second, time.Hour, nil)
	ctx := context.Background()

	text, source := r.Lookup(ctx, "Acme")
	require.Equal(t, "Acme is a regional freight forwarder.", text)
	require.Equal(t, SummaryGenerated, source)

	text, source = r.Lookup(ctx, "ACME")
	require.Equal(t, "Acme is a regional freight forwarder.", text)
	require.Equal(t, SummaryCached, source)
	require.EqualValues(t, 1, gen.calls.Load())

	snap, err := f.ref.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Summaries, 1)
	require.Equal(t, "Acme", snap.Summaries[0].CompanyName)
}

func TestSummary_ProviderFailureNotCached(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{err: fmt.Errorf("quota exceeded")}
	r := NewSummaryResolver(f.ref, gen, time.Second, time.Hour, nil)
	ctx := context.Background()

	require.Equal(t, DefaultSummary, r.Summary(ctx, "Acme"))
	require.Equal(t, DefaultSummary, r.Summary(ctx, "Acme"))
	require.EqualValues(t, 2, gen.calls.Load())

	n, err := db.CountRows(ctx, f.db, db.ClientSummaryCache)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSummary_EmptyResponseIsDefault(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{text: "   "}
	r := NewSummaryResolver(f.ref, gen, time.Second, time.Hour, nil)

	require.Equal(t, DefaultSummary, r.Summary(context.Background(), "Acme"))
	n, err := db.CountRows(context.Background(), f.db, db.ClientSummaryCache)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSummary_NoGeneratorUsesCache(t *testing.T) {
	f := newFixture(t)
	f.rows(t, db.ClientSummaryCache, []string{"Acme", "Cached text."})
	r := NewSummaryResolver(f.ref, nil, time.Second, time.Hour, nil)

	require.Equal(t, "Cached text.", r.Summary(context.Background(), "acme"))
	require.Equal(t, DefaultSummary, r.Summary(context.Background(), "Globex"))
}

func TestSummaryPrompt(t *testing.T) {
	want := "Briefly summarize the company 'Acme' in 2-3 professional lines, focusing on their industry."
	require.Equal(t, want, SummaryPrompt("Acme"))
}

func TestTerms(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	require.Equal(t, FallbackTerms, Terms(ctx, f.ref, "UAE", "KSA"))
	require.Equal(t, FallbackTerms, CoverTerms(ctx, f.ref))

	f.rows(t, db.TermsList,
		[]string{"UAE", "KSA", "Cross-border: customs by client."},
		[]string{"DEFAULT", "", "Standard terms."},
	)
	require.Equal(t, "Cross-border: customs by client.", Terms(ctx, f.ref, "uae", "ksa"))
	require.Equal(t, "Standard terms.", Terms(ctx, f.ref, "Oman", "Qatar"))
	require.Equal(t, "Standard terms.", CoverTerms(ctx, f.ref))
}

func TestResultStatus_Failures(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{Failed(ReasonNoRate, "SAR"), "Estimation Failed (No Rate for SAR)"},
		{Failed(ReasonDistanceUnavailable, "SAR"), "Estimation Failed (API Error)"},
		{Failed(ReasonMissingAPIKey, "SAR"), "Not Found (No API Key)"},
		{Failed(ReasonStoreUnavailable, "SAR"), "Not Found (Store Unavailable)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.res.Status())
		})
	}
}

func TestDistance_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	f := newFixture(t)
	router := newFakeRouter(750000)
	router.delay = 150 * time.Millisecond
	r := NewDistanceResolver(f.ref, router, time.Second, time.Hour, nil)

	first, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Lookup(first, dubaiRiyadh)
	}()

	// Join the flight, then cancel the caller that started it.
	time.Sleep(20 * time.Millisecond)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	km, outcome := r.Lookup(context.Background(), dubaiRiyadh)
	wg.Wait()

	require.Equal(t, DistanceFetched, outcome)
	require.True(t, km.Equal(dec("750")), "km = %s", km)
	require.EqualValues(t, 1, router.routes.Load())

	n, err := db.CountRows(context.Background(), f.db, db.DistanceCache)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDistance_LowercaseCountryCodesGeocodeFullNames(t *testing.T) {
	f := newFixture(t)
	router := newFakeRouter(1000000)
	r := NewDistanceResolver(f.ref, router, time.Second, time.Hour, nil)

	lane := quote.Lane{FromCountry: "uae", FromCity: "Dubai", ToCountry: "ksa", ToCity: "Riyadh"}
	km, outcome := r.Lookup(context.Background(), lane)
	require.Equal(t, DistanceFetched, outcome)
	require.True(t, km.Equal(dec("1000")), "km = %s", km)

	_, ok := router.queries.Load("Dubai, United Arab Emirates")
	require.True(t, ok)
	_, ok = router.queries.Load("Riyadh, Saudi Arabia")
	require.True(t, ok)
}
