package pricing

import (
	"context"

	"github.com/hpungsan/lanequote/internal/refdata"
)

// FallbackTerms is used when the terms catalog has neither the country pair
// nor a DEFAULT row.
const FallbackTerms = "1. Price is valid for 7 days. 2. Standard T&Cs apply."

// Terms returns the default terms text for a country pair: the exact pair,
// else the first DEFAULT row, else FallbackTerms. Callers may override it.
func Terms(ctx context.Context, ref *refdata.Source, fromCountry, toCountry string) string {
	snap, err := ref.Snapshot(ctx)
	if err != nil {
		return FallbackTerms
	}
	if text, ok := snap.FindTerms(fromCountry, toCountry); ok {
		return text
	}
	return defaultTerms(snap)
}

// CoverTerms returns the terms used on a batch cover letter.
func CoverTerms(ctx context.Context, ref *refdata.Source) string {
	snap, err := ref.Snapshot(ctx)
	if err != nil {
		return FallbackTerms
	}
	return defaultTerms(snap)
}

func defaultTerms(snap *refdata.Snapshot) string {
	if text, ok := snap.DefaultTerms(); ok {
		return text
	}
	return FallbackTerms
}
