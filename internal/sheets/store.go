// Package sheets provides grid access to the spreadsheets that back sheetsdb
// collections. A Grid is read whole and written one row at a time.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/localnerve/sheetsdb/internal/config"
)

// Grid is a sheet's values, row 0 holds the column headers
type Grid = [][]any

// Ref locates one sheet of one spreadsheet
type Ref struct {
	SpreadsheetID string
	SheetName     string
	// Credential is the project's refresh token, used in oauth mode
	Credential string
}

// Key identifies the sheet across spreadsheets
func (r Ref) Key() string {
	return r.SpreadsheetID + "/" + r.SheetName
}

var (
	ErrSpreadsheetNotFound = errors.New("spreadsheet not found")
	ErrSheetNotFound       = errors.New("sheet not found")
	ErrInvalidPosition     = errors.New("invalid row position")
)

// Store reads and writes spreadsheet grids.
// Row positions are 1-based and include the header row.
type Store interface {
	ReadAll(ctx context.Context, ref Ref) (Grid, error)
	Append(ctx context.Context, ref Ref, rows [][]any) error
	UpdateAt(ctx context.Context, ref Ref, pos int, row []any) error
	ClearAt(ctx context.Context, ref Ref, pos int) error
	SheetNames(ctx context.Context, spreadsheetID, credential string) ([]string, error)
	Backend() string
	Check(ctx context.Context) error
}

// Credentials selects how the Google backend authenticates
type Credentials struct {
	Mode            string // service_account or oauth
	CredentialsFile string
	ClientID        string
	ClientSecret    string
}

// CredentialsFromConfig builds the Google credentials from the configuration
func CredentialsFromConfig(cfg *config.Config) Credentials {
	return Credentials{
		Mode:            cfg.SheetsCredentialMode,
		CredentialsFile: cfg.GoogleCredentials,
		ClientID:        cfg.GoogleClientID,
		ClientSecret:    cfg.GoogleClientSecret,
	}
}

// New creates the configured store, instrumented with metrics
func New(cfg *config.Config) (Store, error) {
	var store Store

	switch cfg.SheetsBackend {
	case config.BackendGoogle:
		store = NewGoogleStore(CredentialsFromConfig(cfg))
	case config.BackendXLSX:
		xs, err := NewXLSXStore(cfg.XLSXDir)
		if err != nil {
			return nil, err
		}
		store = xs
	case config.BackendMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported sheets backend: %s", cfg.SheetsBackend)
	}

	return Instrument(store), nil
}

// Normalize trims trailing empty cells and rows, then pads every row to the header width
func Normalize(grid Grid) Grid {
	out := make(Grid, 0, len(grid))
	for _, row := range grid {
		end := len(row)
		for end > 0 && isBlank(row[end-1]) {
			end--
		}
		out = append(out, append([]any{}, row[:end]...))
	}

	last := len(out)
	for last > 0 && len(out[last-1]) == 0 {
		last--
	}
	out = out[:last]

	if len(out) == 0 {
		return out
	}

	width := len(out[0])
	for i := 1; i < len(out); i++ {
		for len(out[i]) < width {
			out[i] = append(out[i], "")
		}
	}
	return out
}

// UserEntered stores numeric-looking strings as numbers, the way a
// spreadsheet parses typed input
func UserEntered(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !isSpecial(trimmed) {
		return f
	}
	return s
}

// isSpecial rejects the float spellings a spreadsheet keeps as text
func isSpecial(s string) bool {
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "inf", "infinity", "nan":
		return true
	}
	return false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// quoteSheet quotes a sheet title for A1 notation
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnsRange is the whole-sheet range
func columnsRange(sheetName string) string {
	return quoteSheet(sheetName) + "!A:ZZ"
}

// rowRange is the range of a single row
func rowRange(sheetName string, pos int) string {
	return fmt.Sprintf("%s!A%d:ZZ%d", quoteSheet(sheetName), pos, pos)
}
