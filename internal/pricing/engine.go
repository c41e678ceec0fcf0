// Package pricing resolves lane prices: a catalogued price when one exists,
// otherwise an estimate of rate per kilometer times driving distance.
package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hpungsan/lanequote/internal/quote"
	"github.com/hpungsan/lanequote/internal/refdata"
)

// Kind is the shape of a resolution result.
type Kind string

const (
	KindFound     Kind = "found"
	KindEstimated Kind = "estimated"
	KindFailed    Kind = "failed"
)

// Reason explains a failed resolution.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNoRate              Reason = "no_rate"
	ReasonDistanceUnavailable Reason = "distance_unavailable"
	ReasonMissingAPIKey       Reason = "missing_api_key"
	ReasonStoreUnavailable    Reason = "store_unavailable"
)

// Request identifies what to price.
type Request struct {
	Lane      quote.Lane
	TruckType string
	Currency  string
}

// Result is the outcome of Resolve. Exactly one of the three kinds.
type Result struct {
	Kind     Kind            `json:"kind"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`

	// Estimates only.
	DistanceKM decimal.Decimal `json:"distance_km"`
	RatePerKM  decimal.Decimal `json:"rate_per_km"`
	FromCache  bool            `json:"from_cache,omitempty"`

	// RequestedCurrency is kept for the failure status text.
	RequestedCurrency string `json:"-"`
	Reason            Reason `json:"reason,omitempty"`
}

// HasPrice reports whether the result carries a price.
func (r Result) HasPrice() bool {
	return r.Kind == KindFound || r.Kind == KindEstimated
}

// Status is the human-readable outcome recorded in the request log and
// the batch output.
func (r Result) Status() string {
	switch r.Kind {
	case KindFound:
		return "Price Found"
	case KindEstimated:
		if r.FromCache {
			return "Estimated (Cache)"
		}
		return "Estimated (API)"
	}

	switch r.Reason {
	case ReasonNoRate:
		return fmt.Sprintf("Estimation Failed (No Rate for %s)", r.RequestedCurrency)
	case ReasonDistanceUnavailable:
		return "Estimation Failed (API Error)"
	case ReasonMissingAPIKey:
		return "Not Found (No API Key)"
	case ReasonStoreUnavailable:
		return "Not Found (Store Unavailable)"
	default:
		return "Not Found"
	}
}

// Found builds a catalogued price result.
func Found(price decimal.Decimal, currency string) Result {
	return Result{Kind: KindFound, Price: price, Currency: currency}
}

// Estimated builds an estimate result.
func Estimated(price decimal.Decimal, currency string, distanceKM decimal.Decimal) Result {
	return Result{Kind: KindEstimated, Price: price, Currency: currency, DistanceKM: distanceKM}
}

// Failed builds a failure result.
func Failed(reason Reason, requestedCurrency string) Result {
	return Result{Kind: KindFailed, Reason: reason, RequestedCurrency: requestedCurrency}
}

// Engine runs the lookup-or-estimate procedure.
type Engine struct {
	ref       *refdata.Source
	distances *DistanceResolver
	log       *zap.Logger
}

// NewEngine builds an engine.
func NewEngine(ref *refdata.Source, distances *DistanceResolver, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{ref: ref, distances: distances, log: log}
}

// Distances returns the engine's distance resolver.
func (e *Engine) Distances() *DistanceResolver {
	return e.distances
}

// Resolve prices a request. It never returns an error: every failure is a
// Failed result.
//
//  1. first price row for lane, currency and truck type -> Found
//  2. no rate for truck type and currency -> Failed(NoRate)
//  3. distance for the lane, else Failed(DistanceUnavailable or MissingAPIKey)
//  4. Estimated(distance x rate)
func (e *Engine) Resolve(ctx context.Context, req Request) Result {
	lane := req.Lane.Trimmed()
	truck := strings.TrimSpace(req.TruckType)
	currency := strings.TrimSpace(req.Currency)

	snap, err := e.ref.Snapshot(ctx)
	if err != nil {
		e.log.Warn("reference data unavailable", zap.Error(err))
		return Failed(ReasonStoreUnavailable, currency)
	}

	if p, ok := snap.FindPrice(lane, truck, currency); ok {
		return Found(p.Price.Decimal, p.Currency)
	}

	rate, ok := snap.FindRate(truck, currency)
	if !ok {
		return Failed(ReasonNoRate, currency)
	}

	km, outcome := e.distances.Lookup(ctx, lane)
	switch outcome {
	case DistanceNoProvider:
		return Failed(ReasonMissingAPIKey, currency)
	case DistanceFailed:
		return Failed(ReasonDistanceUnavailable, currency)
	}

	res := Estimated(km.Mul(rate.RatePerKM.Decimal), currency, km)
	res.RatePerKM = rate.RatePerKM.Decimal
	res.FromCache = outcome == DistanceCached
	return res
}
