package ops

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/pricing"
	"github.com/hpungsan/lanequote/internal/quote"
)

// TermsInput contains parameters for the Terms operation.
type TermsInput struct {
	FromCountry string `json:"from_country" validate:"required"`
	ToCountry   string `json:"to_country" validate:"required"`
}

// TermsOutput contains the result of the Terms operation.
type TermsOutput struct {
	FromCountry string `json:"from_country"`
	ToCountry   string `json:"to_country"`
	Terms       string `json:"terms_and_conditions"`
}

// Terms returns the default terms text for a country pair.
func (s *Service) Terms(ctx context.Context, in TermsInput) (*TermsOutput, error) {
	in.FromCountry = strings.TrimSpace(in.FromCountry)
	in.ToCountry = strings.TrimSpace(in.ToCountry)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	return &TermsOutput{
		FromCountry: in.FromCountry,
		ToCountry:   in.ToCountry,
		Terms:       pricing.Terms(ctx, s.Ref, in.FromCountry, in.ToCountry),
	}, nil
}

// DistanceOutput contains the result of the Distance operation.
type DistanceOutput struct {
	Lane       quote.Lane      `json:"lane"`
	Found      bool            `json:"found"`
	DistanceKM decimal.Decimal `json:"distance_km"`
	Source     string          `json:"source"`
}

// Distance returns the driving distance of a lane, from the distance cache
// or the routing provider.
func (s *Service) Distance(ctx context.Context, lane quote.Lane) (*DistanceOutput, error) {
	lane = lane.Trimmed()
	if lane.FromCountry == "" || lane.FromCity == "" || lane.ToCountry == "" || lane.ToCity == "" {
		return nil, errors.NewInvalidRequest("from_country, from_city, to_country and to_city are required")
	}

	km, outcome := s.Engine.Distances().Lookup(ctx, lane)
	return &DistanceOutput{
		Lane:       lane,
		Found:      outcome.Found(),
		DistanceKM: km,
		Source:     outcome.String(),
	}, nil
}

// SummaryOutput contains the result of the Summary operation.
type SummaryOutput struct {
	Company string `json:"company"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

// Summary returns the client company description.
func (s *Service) Summary(ctx context.Context, company string) (*SummaryOutput, error) {
	company = strings.TrimSpace(company)
	text, src := s.Summaries.Lookup(ctx, company)
	return &SummaryOutput{Company: company, Summary: text, Source: string(src)}, nil
}

// CurrenciesOutput contains the result of the Currencies operation.
type CurrenciesOutput struct {
	Currencies      []string `json:"currencies"`
	DefaultCurrency string   `json:"default_currency,omitempty"`
}

// Currencies lists the rate card currencies.
func (s *Service) Currencies(ctx context.Context) (*CurrenciesOutput, error) {
	snap, err := s.Ref.Snapshot(ctx)
	if err != nil {
		return nil, errors.As(err)
	}
	out := &CurrenciesOutput{Currencies: snap.Currencies(), DefaultCurrency: s.Config.DefaultCurrency}
	if out.Currencies == nil {
		out.Currencies = []string{}
	}
	return out, nil
}
