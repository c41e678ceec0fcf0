package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/lanequote/internal/quote"
	"github.com/hpungsan/lanequote/internal/refdata"
)

// Router geocodes addresses and measures driving distances.
// geoapify.Client implements it.
type Router interface {
	Geocode(ctx context.Context, text string) (quote.Point, bool, error)
	DrivingDistance(ctx context.Context, from, to quote.Point) (meters float64, ok bool, err error)
}

// DistanceOutcome says where a distance came from, or why there is none.
type DistanceOutcome int

const (
	// DistanceCached means the distance cache table had the lane.
	DistanceCached DistanceOutcome = iota
	// DistanceFetched means the router produced the distance.
	DistanceFetched
	// DistanceNoProvider means the lane was not cached and no router is configured.
	DistanceNoProvider
	// DistanceFailed means geocoding or routing failed or timed out.
	DistanceFailed
)

func (o DistanceOutcome) String() string {
	switch o {
	case DistanceCached:
		return "cache"
	case DistanceFetched:
		return "api"
	case DistanceNoProvider:
		return "no_provider"
	default:
		return "failed"
	}
}

// Found reports whether the outcome carries a distance.
func (o DistanceOutcome) Found() bool {
	return o == DistanceCached || o == DistanceFetched
}

const memoSize = 1024

// DistanceResolver returns lane distances from the distance cache, falling
// back to the router and writing new distances through to the cache.
type DistanceResolver struct {
	ref     *refdata.Source
	router  Router
	timeout time.Duration
	memo    *expirable.LRU[string, decimal.Decimal]
	flights singleflight.Group
	log     *zap.Logger
}

// NewDistanceResolver builds a resolver. A nil router disables provider calls.
// memoTTL bounds how long fetched distances are remembered in process.
func NewDistanceResolver(ref *refdata.Source, router Router, timeout, memoTTL time.Duration, log *zap.Logger) *DistanceResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &DistanceResolver{
		ref:     ref,
		router:  router,
		timeout: timeout,
		memo:    expirable.NewLRU[string, decimal.Decimal](memoSize, nil, memoTTL),
		log:     log,
	}
}

type distanceResult struct {
	km      decimal.Decimal
	outcome DistanceOutcome
}

// Distance returns the lane distance in kilometers, or false when none is available.
func (r *DistanceResolver) Distance(ctx context.Context, lane quote.Lane) (decimal.Decimal, bool) {
	km, outcome := r.Lookup(ctx, lane)
	return km, outcome.Found()
}

// Lookup returns the lane distance and where it came from. Failures are
// reported through the outcome, never as errors.
func (r *DistanceResolver) Lookup(ctx context.Context, lane quote.Lane) (decimal.Decimal, DistanceOutcome) {
	lane = lane.Trimmed()

	if km, ok := r.cached(ctx, lane); ok {
		r.log.Debug("distance cache hit", zap.String("lane", lane.Key()))
		return km, DistanceCached
	}
	if km, ok := r.memo.Get(lane.Key()); ok {
		return km, DistanceFetched
	}
	if r.router == nil {
		return decimal.Decimal{}, DistanceNoProvider
	}

	// The shared call outlives any one caller's cancellation; each provider
	// round trip is still bounded by the resolver timeout.
	fctx := context.WithoutCancel(ctx)
	v, _, _ := r.flights.Do(lane.Key(), func() (any, error) {
		// A flight that just finished may have written this lane.
		if km, ok := r.cached(fctx, lane); ok {
			return distanceResult{km, DistanceCached}, nil
		}
		if km, ok := r.memo.Get(lane.Key()); ok {
			return distanceResult{km, DistanceFetched}, nil
		}

		km, err := r.fetch(fctx, lane)
		if err != nil {
			r.log.Warn("distance lookup failed", zap.String("lane", lane.Key()), zap.Error(err))
			return distanceResult{outcome: DistanceFailed}, nil
		}

		r.memo.Add(lane.Key(), km)
		entry := quote.DistanceEntry{Lane: lane, DistanceKM: decimal.NewNullDecimal(km)}
		if err := r.ref.AppendDistance(fctx, entry); err != nil {
			r.log.Warn("failed to save to distance cache", zap.String("lane", lane.Key()), zap.Error(err))
		}
		return distanceResult{km, DistanceFetched}, nil
	})

	res := v.(distanceResult)
	return res.km, res.outcome
}

func (r *DistanceResolver) cached(ctx context.Context, lane quote.Lane) (decimal.Decimal, bool) {
	snap, err := r.ref.Snapshot(ctx)
	if err != nil {
		r.log.Warn("distance cache unavailable", zap.Error(err))
		return decimal.Decimal{}, false
	}
	return snap.FindDistance(lane)
}

// fetch geocodes both ends and routes between them. Each provider round trip
// runs under the resolver timeout.
func (r *DistanceResolver) fetch(ctx context.Context, lane quote.Lane) (decimal.Decimal, error) {
	var from, to quote.Point

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		from, err = r.geocode(gctx, lane.FromCity, lane.FromCountry)
		return err
	})
	g.Go(func() (err error) {
		to, err = r.geocode(gctx, lane.ToCity, lane.ToCountry)
		return err
	})
	if err := g.Wait(); err != nil {
		return decimal.Decimal{}, err
	}

	rctx, cancel := r.withTimeout(ctx)
	defer cancel()
	meters, ok, err := r.router.DrivingDistance(rctx, from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no route between %s and %s", lane.FromCity, lane.ToCity)
	}

	return decimal.NewFromFloat(meters).Div(decimal.NewFromInt(1000)).Round(2), nil
}

func (r *DistanceResolver) geocode(ctx context.Context, city, country string) (quote.Point, error) {
	text := fmt.Sprintf("%s, %s", city, quote.CountryName(country))

	gctx, cancel := r.withTimeout(ctx)
	defer cancel()
	p, ok, err := r.router.Geocode(gctx, text)
	if err != nil {
		return quote.Point{}, err
	}
	if !ok {
		return quote.Point{}, fmt.Errorf("no coordinates for %q", text)
	}
	return p, nil
}

func (r *DistanceResolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
