package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/quote"
)

// Table describes a spreadsheet-shaped table: a name and its ordered columns.
type Table struct {
	Name    string
	Columns []string
}

// Tables backing reference data and the two caches.
var (
	PriceList = Table{
		Name:    "price_list",
		Columns: []string{"From_Country", "From_City", "To_Country", "To_City", "Truck_Type", "Currency", "Price"},
	}
	RateList = Table{
		Name:    "rate_list",
		Columns: []string{"Truck_Type", "Rate_per_KM", "Currency"},
	}
	DistanceCache = Table{
		Name:    "distance_cache",
		Columns: []string{"From_Country", "From_City", "To_Country", "To_City", "Distance_KM"},
	}
	ClientSummaryCache = Table{
		Name:    "client_summary_cache",
		Columns: []string{"Client_Company_Name", "Summary_Text"},
	}
	TermsList = Table{
		Name:    "terms_list",
		Columns: []string{"From_Country", "To_Country", "Terms_Text"},
	}
)

// ReferenceTables are the externally authored tables that may be imported.
var ReferenceTables = []Table{PriceList, RateList, TermsList}

// ReferenceTable returns the reference table with the given name.
func ReferenceTable(name string) (Table, bool) {
	for _, t := range ReferenceTables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// AppendRows appends rows to t in one transaction. Cells are stored as text;
// short rows are padded with empty cells.
func AppendRows(ctx context.Context, db *sql.DB, t Table, rows [][]string) error {
	return writeRows(ctx, db, t, rows, false)
}

// ReplaceRows clears t and writes rows in one transaction.
func ReplaceRows(ctx context.Context, db *sql.DB, t Table, rows [][]string) error {
	return writeRows(ctx, db, t, rows, true)
}

func writeRows(ctx context.Context, db *sql.DB, t Table, rows [][]string, replace bool) error {
	if len(rows) == 0 && !replace {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.Name); err != nil {
			return errors.NewInternal(err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(t.Columns, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i, row := range rows {
		if len(row) > len(t.Columns) {
			return errors.NewInvalidRequest(fmt.Sprintf("%s row %d has %d cells, want at most %d", t.Name, i+1, len(row), len(t.Columns)))
		}
		for j := range args {
			args[j] = ""
			if j < len(row) {
				args[j] = row[j]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CountRows returns the number of rows in t.
func CountRows(ctx context.Context, db *sql.DB, t Table) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.Name).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// readRows returns every row of t in table (rowid) order.
// String cells are trimmed.
func readRows(ctx context.Context, db *sql.DB, t Table) ([][]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(t.Columns, ", "), t.Name)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		cells := make([]string, len(t.Columns))
		ptrs := make([]any, len(cells))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.NewInternal(err)
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

// ListPrices loads the price list in table order.
func ListPrices(ctx context.Context, db *sql.DB) ([]quote.PriceEntry, error) {
	rows, err := readRows(ctx, db, PriceList)
	if err != nil {
		return nil, err
	}
	out := make([]quote.PriceEntry, len(rows))
	for i, r := range rows {
		out[i] = quote.PriceEntry{
			Lane:      quote.Lane{FromCountry: r[0], FromCity: r[1], ToCountry: r[2], ToCity: r[3]},
			TruckType: r[4],
			Currency:  r[5],
			Price:     quote.ParseAmount(r[6]),
		}
	}
	return out, nil
}

// ListRates loads the rate card in table order.
func ListRates(ctx context.Context, db *sql.DB) ([]quote.RateEntry, error) {
	rows, err := readRows(ctx, db, RateList)
	if err != nil {
		return nil, err
	}
	out := make([]quote.RateEntry, len(rows))
	for i, r := range rows {
		out[i] = quote.RateEntry{
			TruckType: r[0],
			RatePerKM: quote.ParseAmount(r[1]),
			Currency:  r[2],
		}
	}
	return out, nil
}

// ListDistances loads the distance cache in table order.
func ListDistances(ctx context.Context, db *sql.DB) ([]quote.DistanceEntry, error) {
	rows, err := readRows(ctx, db, DistanceCache)
	if err != nil {
		return nil, err
	}
	out := make([]quote.DistanceEntry, len(rows))
	for i, r := range rows {
		out[i] = quote.DistanceEntry{
			Lane:       quote.Lane{FromCountry: r[0], FromCity: r[1], ToCountry: r[2], ToCity: r[3]},
			DistanceKM: quote.ParseAmount(r[4]),
		}
	}
	return out, nil
}

// ListSummaries loads the client summary cache in table order.
func ListSummaries(ctx context.Context, db *sql.DB) ([]quote.SummaryEntry, error) {
	rows, err := readRows(ctx, db, ClientSummaryCache)
	if err != nil {
		return nil, err
	}
	out := make([]quote.SummaryEntry, len(rows))
	for i, r := range rows {
		out[i] = quote.SummaryEntry{CompanyName: r[0], SummaryText: r[1]}
	}
	return out, nil
}

// ListTerms loads the terms catalog in table order.
func ListTerms(ctx context.Context, db *sql.DB) ([]quote.TermsEntry, error) {
	rows, err := readRows(ctx, db, TermsList)
	if err != nil {
		return nil, err
	}
	out := make([]quote.TermsEntry, len(rows))
	for i, r := range rows {
		out[i] = quote.TermsEntry{FromCountry: r[0], ToCountry: r[1], TermsText: r[2]}
	}
	return out, nil
}

// AppendDistance appends one distance_cache row. Existing rows for the same
// lane are left in place.
func AppendDistance(ctx context.Context, db *sql.DB, e quote.DistanceEntry) error {
	return AppendRows(ctx, db, DistanceCache, [][]string{{
		e.FromCountry, e.FromCity, e.ToCountry, e.ToCity, e.DistanceKM.Decimal.String(),
	}})
}

// AppendSummary appends one client_summary_cache row.
func AppendSummary(ctx context.Context, db *sql.DB, e quote.SummaryEntry) error {
	return AppendRows(ctx, db, ClientSummaryCache, [][]string{{e.CompanyName, e.SummaryText}})
}
