package ops

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/workbook"
)

// legacyPriceSheet is the default sheet name of the original price spreadsheet.
const legacyPriceSheet = "Sheet1"

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string `json:"path"` // required, .xlsx
	// Table imports only this table, from the sheet of that name or else the
	// first sheet. Empty imports every sheet by name.
	Table   string `json:"table,omitempty"`
	Replace bool   `json:"replace,omitempty"`
}

// ImportedTable reports one imported sheet.
type ImportedTable struct {
	Table    string `json:"table"`
	Sheet    string `json:"sheet"`
	Rows     int    `json:"rows"`
	Replaced bool   `json:"replaced"`
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Tables []ImportedTable `json:"tables"`
}

type importJob struct {
	table db.Table
	sheet *workbook.Sheet
}

// Import loads reference rows from a workbook. Every sheet is checked before
// any table is written.
func (s *Service) Import(ctx context.Context, in ImportInput) (*ImportOutput, error) {
	in.Table = strings.TrimSpace(in.Table)
	if in.Table != "" {
		if _, ok := db.ReferenceTable(in.Table); !ok {
			return nil, errors.NewUnsupportedTable(in.Table)
		}
	}

	f, err := s.openWorkbook(in.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	sheets, err := workbook.ReadAll(f)
	if err != nil {
		return nil, err
	}

	jobs, err := planImport(sheets, in.Table)
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{Tables: make([]ImportedTable, 0, len(jobs))}
	for _, j := range jobs {
		rows := make([][]string, len(j.sheet.Rows))
		for i, r := range j.sheet.Rows {
			rows[i] = j.sheet.Project(r, j.table.Columns)
		}
		if err := s.Ref.ImportRows(ctx, j.table, rows, in.Replace); err != nil {
			return nil, err
		}
		s.Logger.Info("imported reference rows",
			zap.String("table", j.table.Name), zap.String("sheet", j.sheet.Name),
			zap.Int("rows", len(rows)), zap.Bool("replace", in.Replace))
		out.Tables = append(out.Tables, ImportedTable{
			Table:    j.table.Name,
			Sheet:    j.sheet.Name,
			Rows:     len(rows),
			Replaced: in.Replace,
		})
	}
	return out, nil
}

func planImport(sheets []*workbook.Sheet, only string) ([]importJob, error) {
	if len(sheets) == 0 {
		return nil, errors.NewInvalidRequest("workbook has no sheets")
	}

	var jobs []importJob
	if only != "" {
		t, _ := db.ReferenceTable(only)
		sheet := sheets[0]
		for _, sh := range sheets {
			if sh.Name == only {
				sheet = sh
				break
			}
		}
		jobs = append(jobs, importJob{t, sheet})
	} else {
		seen := make(map[string]bool)
		for _, sh := range sheets {
			name := sh.Name
			if name == legacyPriceSheet {
				name = db.PriceList.Name
			}
			t, ok := db.ReferenceTable(name)
			if !ok {
				return nil, errors.NewUnsupportedTable(sh.Name)
			}
			if seen[t.Name] {
				return nil, errors.NewInvalidRequest("workbook has more than one sheet for " + t.Name)
			}
			seen[t.Name] = true
			jobs = append(jobs, importJob{t, sh})
		}
	}

	for _, j := range jobs {
		if err := j.sheet.Require(j.table.Columns...); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}
