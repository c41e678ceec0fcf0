package db

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/quote"
)

// TimestampLayout is the request_log timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// NoCurrency is logged when a resolution produced no price.
const NoCurrency = "N/A"

// LogEntry is one request_log row.
type LogEntry struct {
	ID         string          `json:"id"`
	Timestamp  string          `json:"timestamp"`
	Mode       string          `json:"mode"`
	PreparedBy string          `json:"prepared_by"`
	Client     quote.Client    `json:"client"`
	Lane       quote.Lane      `json:"lane"`
	TruckType  string          `json:"truck_type"`
	Status     string          `json:"status"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
}

// AppendLog appends entries to request_log in one transaction.
// Entries must carry their ID.
func AppendLog(ctx context.Context, db *sql.DB, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO request_log (
			id, timestamp, mode, prepared_by,
			client_type, client_company, contact_name, contact_email, contact_phone,
			from_country, from_city, to_country, to_city,
			truck_type, status, price, currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, e := range entries {
		currency := e.Currency
		if currency == "" {
			currency = NoCurrency
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, e.Timestamp, e.Mode, e.PreparedBy,
			e.Client.Type, e.Client.Company, e.Client.ContactName, e.Client.Email, e.Client.Phone,
			e.Lane.FromCountry, e.Lane.FromCity, e.Lane.ToCountry, e.Lane.ToCity,
			e.TruckType, e.Status, e.Price.String(), currency,
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListLog returns request_log rows newest first.
func ListLog(ctx context.Context, db *sql.DB, limit, offset int) ([]LogEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, timestamp, mode, prepared_by,
			client_type, client_company, contact_name, contact_email, contact_phone,
			from_country, from_city, to_country, to_city,
			truck_type, status, price, currency
		FROM request_log
		ORDER BY rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			e     LogEntry
			price string
		)
		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Mode, &e.PreparedBy,
			&e.Client.Type, &e.Client.Company, &e.Client.ContactName, &e.Client.Email, &e.Client.Phone,
			&e.Lane.FromCountry, &e.Lane.FromCity, &e.Lane.ToCountry, &e.Lane.ToCity,
			&e.TruckType, &e.Status, &price, &e.Currency,
		)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if p := quote.ParseAmount(price); p.Valid {
			e.Price = p.Decimal
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

// CountLog returns the total number of request_log rows.
func CountLog(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_log").Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}
