// Package workbook reads and writes .xlsx workbooks for batch pricing and
// reference data import.
package workbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hpungsan/lanequote/internal/errors"
)

// Sheet is one worksheet: a trimmed header row and the data rows below it.
// Every row has exactly len(Header) cells.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Index returns the position of column name, or -1.
func (s *Sheet) Index(name string) int {
	for i, h := range s.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Require returns MISSING_COLUMNS naming every absent column.
func (s *Sheet) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if s.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingColumns(missing)
	}
	return nil
}

// Column returns the cell for column name in row, trimmed. Unknown columns read as "".
func (s *Sheet) Column(row []string, name string) string {
	i := s.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Project reorders a row into cols order. Unknown columns are blank.
func (s *Sheet) Project(row []string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = s.Column(row, c)
	}
	return out
}

// ReadFirst reads the first worksheet.
func ReadFirst(r io.Reader) (*Sheet, error) {
	f, err := open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, errors.NewInvalidRequest("workbook has no sheets")
	}
	return readSheet(f, names[0])
}

// ReadAll reads every worksheet in workbook order.
func ReadAll(r io.Reader) ([]*Sheet, error) {
	f, err := open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var sheets []*Sheet
	for _, name := range f.GetSheetList() {
		s, err := readSheet(f, name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

func open(r io.Reader) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("not a readable .xlsx workbook: %v", err))
	}
	return f, nil
}

// readSheet reads raw cell values so numbers come back as authored rather
// than with display formatting. Blank rows are skipped.
func readSheet(f *excelize.File, name string) (*Sheet, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read sheet %s: %w", name, err))
	}

	s := &Sheet{Name: name}
	if len(rows) == 0 {
		return s, nil
	}

	s.Header = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		s.Header[i] = strings.TrimSpace(h)
	}

	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		cells := make([]string, len(s.Header))
		copy(cells, row)
		s.Rows = append(s.Rows, cells)
	}
	return s, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Write writes a single-sheet workbook. Cells may be strings or numbers.
func Write(w io.Writer, sheet string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := setRow(f, sheet, 1, head); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}
