package refdata

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hpungsan/lanequote/internal/quote"
)

// Snapshot is an immutable in-memory copy of every table the resolvers read.
// Slices are in table order; every Find method returns the first match.
type Snapshot struct {
	Prices    []quote.PriceEntry
	Rates     []quote.RateEntry
	Distances []quote.DistanceEntry
	Summaries []quote.SummaryEntry
	Terms     []quote.TermsEntry
	LoadedAt  time.Time
}

// FindPrice returns the first price row for the lane (case-insensitive),
// currency (case-insensitive) and truck type (exact) with a present price.
func (s *Snapshot) FindPrice(lane quote.Lane, truckType, currency string) (quote.PriceEntry, bool) {
	truckType = strings.TrimSpace(truckType)
	for _, p := range s.Prices {
		if !p.Price.Valid || p.TruckType != truckType || !quote.SameFold(p.Currency, currency) {
			continue
		}
		if p.Lane.Matches(lane) {
			return p, true
		}
	}
	return quote.PriceEntry{}, false
}

// FindRate returns the first rate row for (truck type, currency) with a present rate.
func (s *Snapshot) FindRate(truckType, currency string) (quote.RateEntry, bool) {
	truckType = strings.TrimSpace(truckType)
	for _, r := range s.Rates {
		if r.RatePerKM.Valid && r.TruckType == truckType && quote.SameFold(r.Currency, currency) {
			return r, true
		}
	}
	return quote.RateEntry{}, false
}

// FindDistance returns the first cached distance for the lane.
func (s *Snapshot) FindDistance(lane quote.Lane) (decimal.Decimal, bool) {
	for _, d := range s.Distances {
		if d.DistanceKM.Valid && d.Lane.Matches(lane) {
			return d.DistanceKM.Decimal, true
		}
	}
	return decimal.Decimal{}, false
}

// FindSummary returns the first cached summary for the company.
func (s *Snapshot) FindSummary(company string) (string, bool) {
	for _, e := range s.Summaries {
		if quote.SameFold(e.CompanyName, company) {
			return e.SummaryText, true
		}
	}
	return "", false
}

// FindTerms returns the terms text for an exact country pair.
func (s *Snapshot) FindTerms(fromCountry, toCountry string) (string, bool) {
	for _, e := range s.Terms {
		if quote.SameFold(e.FromCountry, fromCountry) && quote.SameFold(e.ToCountry, toCountry) {
			return e.TermsText, true
		}
	}
	return "", false
}

// DefaultTerms returns the first DEFAULT terms row.
func (s *Snapshot) DefaultTerms() (string, bool) {
	for _, e := range s.Terms {
		if strings.EqualFold(e.FromCountry, quote.DefaultsCountry) {
			return e.TermsText, true
		}
	}
	return "", false
}

// Currencies returns the distinct rate card currencies, sorted.
func (s *Snapshot) Currencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.Rates {
		c := strings.TrimSpace(r.Currency)
		if c == "" || seen[strings.ToUpper(c)] {
			continue
		}
		seen[strings.ToUpper(c)] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
