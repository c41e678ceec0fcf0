package ops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/pricing"
	"github.com/hpungsan/lanequote/internal/quote"
	"github.com/hpungsan/lanequote/internal/render"
	"github.com/hpungsan/lanequote/internal/workbook"
)

// Batch workbook columns.
const (
	ColFromCountry = "From_Country"
	ColFromCity    = "From_City"
	ColToCountry   = "To_Country"
	ColToCity      = "To_City"
	ColTruckType   = "Truck_Type"
	ColPrice       = "Price"
	ColCurrency    = "Currency"
	ColStatus      = "Status"
)

// BatchColumns are required in every batch workbook.
var BatchColumns = []string{ColFromCountry, ColFromCity, ColToCountry, ColToCity, ColTruckType}

// PricedSheet is the sheet name of the output workbook.
const PricedSheet = "Priced_Lanes"

// NotFoundPrice fills the Price column of rows without a price.
const NotFoundPrice = "NOT FOUND"

const defaultBatchWorkers = 4

// BatchInput contains parameters for the Batch operation.
// The workbook comes from Path, or from Workbook when Path is empty.
type BatchInput struct {
	Path     string    `json:"path,omitempty"`
	Workbook io.Reader `json:"-"`
	// FileName names the input for the output workbook. Defaults to the base of Path.
	FileName string `json:"file_name,omitempty"`

	Currency   string `json:"currency" validate:"required"`
	PreparedBy string `json:"prepared_by" validate:"required"`

	quote.Client

	Save bool `json:"save,omitempty"`
}

// BatchRow is the outcome for one input row.
type BatchRow struct {
	Row    int            `json:"row"`
	Lane   quote.Lane     `json:"lane"`
	Truck  string         `json:"truck_type"`
	Status string         `json:"status"`
	Result pricing.Result `json:"result"`
}

// BatchOutput contains the result of the Batch operation.
type BatchOutput struct {
	Rows          []BatchRow       `json:"rows"`
	ClientSummary string           `json:"client_summary"`
	WorkbookName  string           `json:"workbook_name"`
	Workbook      []byte           `json:"-"`
	Cover         *render.Document `json:"cover,omitempty"`
	CoverError    string           `json:"cover_error,omitempty"`
	WorkbookPath  string           `json:"workbook_path,omitempty"`
	CoverPath     string           `json:"cover_path,omitempty"`
}

// Batch prices every row of a workbook. Rows are resolved in parallel and
// reported in input order; all rows are logged in one append.
func (s *Service) Batch(ctx context.Context, in BatchInput) (*BatchOutput, error) {
	in.Currency = strings.TrimSpace(in.Currency)
	in.PreparedBy = strings.TrimSpace(in.PreparedBy)
	in.Client.Company = strings.TrimSpace(in.Client.Company)
	in.Client.Email = strings.TrimSpace(in.Client.Email)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	sheet, name, err := s.readBatchSheet(in)
	if err != nil {
		return nil, err
	}
	if err := sheet.Require(BatchColumns...); err != nil {
		return nil, err
	}

	summary := s.Summaries.Summary(ctx, in.Client.Company)

	rows := make([]BatchRow, len(sheet.Rows))
	workers := s.Config.BatchWorkers
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, cells := range sheet.Rows {
		g.Go(func() error {
			rows[i] = s.priceRow(ctx, sheet, i, cells, in.Currency)
			return nil
		})
	}
	_ = g.Wait()

	if err := s.logBatch(ctx, in, rows); err != nil {
		s.Logger.Warn("failed to log batch requests", zap.Int("rows", len(rows)), zap.Error(err))
	}

	var buf bytes.Buffer
	header, data := pricedTable(sheet, rows, in.Currency)
	if err := workbook.Write(&buf, PricedSheet, header, data); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &BatchOutput{
		Rows:          rows,
		ClientSummary: summary,
		WorkbookName:  "Priced_Lanes_" + name,
		Workbook:      buf.Bytes(),
	}

	cover, err := s.Renderer.Cover(summary, in.PreparedBy, pricing.CoverTerms(ctx, s.Ref))
	if err != nil {
		s.Logger.Warn("failed to render cover letter", zap.Error(err))
		out.CoverError = err.Error()
	} else {
		out.Cover = &cover
	}

	if in.Save {
		if out.WorkbookPath, err = s.saveExport(out.WorkbookName, out.Workbook); err != nil {
			return nil, err
		}
		if out.Cover != nil {
			if out.CoverPath, err = s.saveExport(out.Cover.Name, []byte(out.Cover.HTML)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (s *Service) readBatchSheet(in BatchInput) (*workbook.Sheet, string, error) {
	name := in.FileName
	r := in.Workbook

	if in.Path != "" {
		f, err := s.openWorkbook(in.Path)
		if err != nil {
			return nil, "", err
		}
		defer f.Close() //nolint:errcheck
		r = f
		if name == "" {
			name = filepath.Base(in.Path)
		}
	}
	if r == nil {
		return nil, "", errors.NewInvalidRequest("a workbook path or upload is required")
	}

	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if strings.Trim(name, ". ") == "" {
		name = "batch"
	}
	name = render.SanitizeFileName(name)

	sheet, err := workbook.ReadFirst(r)
	if err != nil {
		return nil, "", err
	}
	return sheet, name + ".xlsx", nil
}

func (s *Service) priceRow(ctx context.Context, sheet *workbook.Sheet, i int, cells []string, currency string) BatchRow {
	row := BatchRow{
		Row: i + 1,
		Lane: quote.Lane{
			FromCountry: sheet.Column(cells, ColFromCountry),
			FromCity:    sheet.Column(cells, ColFromCity),
			ToCountry:   sheet.Column(cells, ColToCountry),
			ToCity:      sheet.Column(cells, ColToCity),
		},
		Truck: sheet.Column(cells, ColTruckType),
	}

	if reason := invalidRow(row); reason != "" {
		row.Status = fmt.Sprintf("Invalid Row (%s)", reason)
		row.Result = pricing.Failed(pricing.ReasonNone, currency)
		return row
	}

	row.Result = s.Engine.Resolve(ctx, pricing.Request{Lane: row.Lane, TruckType: row.Truck, Currency: currency})
	row.Status = row.Result.Status()
	return row
}

func invalidRow(r BatchRow) string {
	var missing []string
	for _, c := range []struct{ col, val string }{
		{ColFromCountry, r.Lane.FromCountry},
		{ColFromCity, r.Lane.FromCity},
		{ColToCountry, r.Lane.ToCountry},
		{ColToCity, r.Lane.ToCity},
		{ColTruckType, r.Truck},
	} {
		if c.val == "" {
			missing = append(missing, c.col)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing " + strings.Join(missing, ", ")
}

func (s *Service) logBatch(ctx context.Context, in BatchInput, rows []BatchRow) error {
	ts := s.timestamp()
	entries := make([]db.LogEntry, len(rows))
	for i, r := range rows {
		id, err := generateULID()
		if err != nil {
			return err
		}
		entries[i] = logEntry(id, ts, quote.ModeBatch, in.PreparedBy, in.Client, r.Lane, r.Truck, r.Result)
		entries[i].Status = r.Status
	}
	return db.AppendLog(ctx, s.DB, entries)
}

// pricedTable returns the input columns plus Price, Currency and Status.
// Input columns of the same names are overwritten in place.
func pricedTable(sheet *workbook.Sheet, rows []BatchRow, currency string) ([]string, [][]any) {
	header := append([]string(nil), sheet.Header...)
	idx := func(col string) int {
		for i, h := range header {
			if h == col {
				return i
			}
		}
		header = append(header, col)
		return len(header) - 1
	}
	priceCol, currencyCol, statusCol := idx(ColPrice), idx(ColCurrency), idx(ColStatus)

	data := make([][]any, len(rows))
	for i, r := range rows {
		cells := make([]any, len(header))
		for j, v := range sheet.Rows[i] {
			cells[j] = v
		}
		cells[priceCol] = priceCell(r.Result)
		cells[currencyCol] = currencyCell(r.Result, currency)
		cells[statusCol] = r.Status
		data[i] = cells
	}
	return header, data
}

func priceCell(res pricing.Result) any {
	if !res.HasPrice() {
		return NotFoundPrice
	}
	return res.Price.InexactFloat64()
}

// currencyCell is the row's currency; failures after a rate was found still
// show the requested currency.
func currencyCell(res pricing.Result, requested string) string {
	switch {
	case res.HasPrice():
		return res.Currency
	case res.Reason == pricing.ReasonDistanceUnavailable:
		return requested
	default:
		return db.NoCurrency
	}
}
