package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// MaxRows is the highest row position a store accepts
const MaxRows = excelize.TotalRows

// XLSXStore keeps each spreadsheet as <dir>/<spreadsheetID>.xlsx
type XLSXStore struct {
	dir string
	mu  sync.Mutex
}

// NewXLSXStore creates a store rooted at dir, creating dir when missing
func NewXLSXStore(dir string) (*XLSXStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create xlsx directory: %w", err)
	}
	return &XLSXStore{dir: dir}, nil
}

// Backend names the store
func (x *XLSXStore) Backend() string {
	return "xlsx"
}

func (x *XLSXStore) path(spreadsheetID string) (string, error) {
	if spreadsheetID == "" || filepath.Base(spreadsheetID) != spreadsheetID || strings.HasPrefix(spreadsheetID, ".") {
		return "", fmt.Errorf("%w: invalid id %q", ErrSpreadsheetNotFound, spreadsheetID)
	}
	return filepath.Join(x.dir, spreadsheetID+".xlsx"), nil
}

func (x *XLSXStore) open(spreadsheetID string) (*excelize.File, error) {
	p, err := x.path(spreadsheetID)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSpreadsheetNotFound, spreadsheetID)
		}
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return f, nil
}

func requireSheet(f *excelize.File, sheetName string) error {
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil || idx < 0 {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheetName)
	}
	return nil
}

func readRows(f *excelize.File, sheetName string) (Grid, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	grid := make(Grid, len(rows))
	for i, row := range rows {
		grid[i] = make([]any, len(row))
		for j, cell := range row {
			grid[i][j] = cell
		}
	}
	return Normalize(grid), nil
}

// CreateWorkbook writes a new workbook with the given sheets, each seeded with its grid
func (x *XLSXStore) CreateWorkbook(spreadsheetID string, sheetNames []string, grids map[string]Grid) error {
	if len(sheetNames) == 0 {
		return fmt.Errorf("a workbook needs at least one sheet")
	}
	p, err := x.path(spreadsheetID)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheetNames {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		for r, row := range grids[name] {
			if err := setRow(f, name, r+1, row); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(p)
}

// ReadAll returns the populated rows of the sheet
func (x *XLSXStore) ReadAll(ctx context.Context, ref Ref) (Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(ref.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := requireSheet(f, ref.SheetName); err != nil {
		return nil, err
	}
	return readRows(f, ref.SheetName)
}

// Append adds rows after the last populated row
func (x *XLSXStore) Append(ctx context.Context, ref Ref, rows [][]any) error {
	return x.mutate(ctx, ref, func(f *excelize.File) error {
		grid, err := readRows(f, ref.SheetName)
		if err != nil {
			return err
		}
		next := len(grid) + 1
		for i, row := range rows {
			if err := setRow(f, ref.SheetName, next+i, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateAt writes row over the cells at pos
func (x *XLSXStore) UpdateAt(ctx context.Context, ref Ref, pos int, row []any) error {
	if pos < 1 {
		return ErrInvalidPosition
	}
	return x.mutate(ctx, ref, func(f *excelize.File) error {
		return setRow(f, ref.SheetName, pos, row)
	})
}

// ClearAt empties the cells of the row at pos
func (x *XLSXStore) ClearAt(ctx context.Context, ref Ref, pos int) error {
	if pos < 1 {
		return ErrInvalidPosition
	}
	return x.mutate(ctx, ref, func(f *excelize.File) error {
		rows, err := f.GetRows(ref.SheetName)
		if err != nil {
			return err
		}
		if pos > len(rows) {
			return nil
		}
		for col := range rows[pos-1] {
			cell, err := excelize.CoordinatesToCellName(col+1, pos)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(ref.SheetName, cell, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// SheetNames lists the workbook's sheets in tab order
func (x *XLSXStore) SheetNames(ctx context.Context, spreadsheetID, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// Check verifies the workbook directory is present
func (x *XLSXStore) Check(context.Context) error {
	info, err := os.Stat(x.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", x.dir)
	}
	return nil
}

func (x *XLSXStore) mutate(ctx context.Context, ref Ref, fn func(f *excelize.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(ref.SpreadsheetID)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := requireSheet(f, ref.SheetName); err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return f.Save()
}

func setRow(f *excelize.File, sheetName string, pos int, row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, pos)
	if err != nil {
		return err
	}
	values := enterRow(row)
	return f.SetSheetRow(sheetName, cell, &values)
}
