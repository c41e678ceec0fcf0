package ops

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/pricing"
	"github.com/hpungsan/lanequote/internal/quote"
	"github.com/hpungsan/lanequote/internal/render"
)

// QuoteInput contains parameters for the Quote operation.
type QuoteInput struct {
	FromCountry string `json:"from_country" validate:"required,country"`
	FromCity    string `json:"from_city" validate:"required"`
	ToCountry   string `json:"to_country" validate:"required,country"`
	ToCity      string `json:"to_city" validate:"required"`
	TruckType   string `json:"truck_type" validate:"required,trucktype"`
	Currency    string `json:"currency" validate:"required"`
	PreparedBy  string `json:"prepared_by" validate:"required"`

	quote.Client

	Scope     string `json:"scope_summary,omitempty"`
	ClientOps string `json:"client_ops_details,omitempty"`
	// Terms replaces the catalogued terms when set.
	Terms string `json:"terms_and_conditions,omitempty"`

	// Save writes the document into the exports directory.
	Save bool `json:"save,omitempty"`
}

func (in *QuoteInput) normalize() {
	for _, p := range []*string{
		&in.FromCountry, &in.FromCity, &in.ToCountry, &in.ToCity,
		&in.TruckType, &in.Currency, &in.PreparedBy,
		&in.Client.Type, &in.Client.Company, &in.Client.ContactName, &in.Client.Email, &in.Client.Phone,
	} {
		*p = strings.TrimSpace(*p)
	}
}

// Lane returns the requested lane.
func (in *QuoteInput) Lane() quote.Lane {
	return quote.Lane{FromCountry: in.FromCountry, FromCity: in.FromCity, ToCountry: in.ToCountry, ToCity: in.ToCity}
}

// QuoteOutput contains the result of the Quote operation.
type QuoteOutput struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	Result        pricing.Result   `json:"result"`
	ClientSummary string           `json:"client_summary"`
	Terms         string           `json:"terms_and_conditions"`
	Document      *render.Document `json:"document,omitempty"`
	DocumentError string           `json:"document_error,omitempty"`
	Path          string           `json:"path,omitempty"`
}

// Quote prices one lane, records it in the request log and renders the
// quote document when a price was produced.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (*QuoteOutput, error) {
	in.normalize()
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	summary := s.Summaries.Summary(ctx, in.Client.Company)
	res := s.Engine.Resolve(ctx, pricing.Request{Lane: in.Lane(), TruckType: in.TruckType, Currency: in.Currency})

	entry := logEntry(id, s.timestamp(), quote.ModeSingle, in.PreparedBy, in.Client, in.Lane(), in.TruckType, res)
	if err := db.AppendLog(ctx, s.DB, []db.LogEntry{entry}); err != nil {
		s.Logger.Warn("failed to log request", zap.String("id", id), zap.Error(err))
	}

	terms := strings.TrimSpace(in.Terms)
	if terms == "" {
		terms = pricing.Terms(ctx, s.Ref, in.FromCountry, in.ToCountry)
	}

	out := &QuoteOutput{
		ID:            id,
		Status:        res.Status(),
		Result:        res,
		ClientSummary: summary,
		Terms:         terms,
	}

	doc, ok, err := s.Renderer.Quote(render.QuoteInput{
		ClientSummary: summary,
		Scope:         in.Scope,
		ClientOps:     in.ClientOps,
		PreparedBy:    in.PreparedBy,
		Lane:          in.Lane(),
		TruckType:     in.TruckType,
		Currency:      res.Currency,
		Terms:         terms,
	}, res)
	switch {
	case err != nil:
		s.Logger.Warn("failed to render quote document", zap.String("id", id), zap.Error(err))
		out.DocumentError = err.Error()
	case ok:
		out.Document = &doc
		if in.Save {
			path, err := s.saveExport(doc.Name, []byte(doc.HTML))
			if err != nil {
				return nil, err
			}
			out.Path = path
		}
	}

	return out, nil
}

// logEntry builds the request_log row for a resolution. Rows without a price
// carry 0 and N/A.
func logEntry(id, ts, mode, preparedBy string, client quote.Client, lane quote.Lane, truckType string, res pricing.Result) db.LogEntry {
	e := db.LogEntry{
		ID:         id,
		Timestamp:  ts,
		Mode:       mode,
		PreparedBy: preparedBy,
		Client:     client,
		Lane:       lane.Trimmed(),
		TruckType:  strings.TrimSpace(truckType),
		Status:     res.Status(),
		Price:      decimal.Zero,
		Currency:   db.NoCurrency,
	}
	if res.HasPrice() {
		e.Price = res.Price
		e.Currency = res.Currency
	}
	return e
}
