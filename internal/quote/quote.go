package quote

import (
	"github.com/shopspring/decimal"
)

// Request modes recorded in the request log.
const (
	ModeSingle = "Single"
	ModeBatch  = "Batch"
)

// Client types offered to the user.
const (
	ClientExisting = "Existing Client"
	ClientNew      = "New Client"
)

// DefaultsCountry is the From_Country sentinel of the fallback terms row.
const DefaultsCountry = "DEFAULT"

// Lane is an origin/destination city and country pair.
// Values keep their original casing; matching is case-insensitive.
type Lane struct {
	FromCountry string `json:"from_country"`
	FromCity    string `json:"from_city"`
	ToCountry   string `json:"to_country"`
	ToCity      string `json:"to_city"`
}

// Client is the requesting party's metadata. Only Company feeds resolution;
// the rest is recorded in the request log and the document.
type Client struct {
	Type        string `json:"client_type,omitempty" validate:"omitempty,oneof='Existing Client' 'New Client'"`
	Company     string `json:"client_company,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Email       string `json:"contact_email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"contact_phone,omitempty"`
}

// PriceEntry is one price_list row.
type PriceEntry struct {
	Lane
	TruckType string
	Currency  string
	// Price is invalid when the cell was missing or unparseable.
	Price decimal.NullDecimal
}

// RateEntry is one rate_list row.
type RateEntry struct {
	TruckType string
	Currency  string
	RatePerKM decimal.NullDecimal
}

// DistanceEntry is one distance_cache row.
type DistanceEntry struct {
	Lane
	DistanceKM decimal.NullDecimal
}

// SummaryEntry is one client_summary_cache row.
type SummaryEntry struct {
	CompanyName string
	SummaryText string
}

// TermsEntry is one terms_list row.
type TermsEntry struct {
	FromCountry string
	ToCountry   string
	TermsText   string
}

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
