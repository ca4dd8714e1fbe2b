// Package transform converts between sheet grids and JSON records.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/localnerve/sheetsdb/internal/sheets"
)

// Record is one data row keyed by column header, plus its id
type Record = map[string]any

// Collection is the JSON document served for a sheet
type Collection = map[string][]Record

// ParseHeaders stringifies and trims the header row
func ParseHeaders(row []any) []string {
	return lo.Map(row, func(h any, _ int) string {
		if h == nil {
			return ""
		}
		return strings.TrimSpace(cellString(h))
	})
}

// Decode turns a grid into the sheet's collection. Each record's id comes
// from the resolver's strategy. A header named "id" overrides it.
func Decode(grid sheets.Grid, sheetName string, strategy Strategy) Collection {
	if len(grid) == 0 {
		return Collection{sheetName: {}}
	}

	headers := ParseHeaders(grid[0])
	records := make([]Record, 0, len(grid)-1)

	for i, row := range grid[1:] {
		record := Record{"id": strategy.rowID(i, row)}
		for col, header := range headers {
			var cell any
			if col < len(row) {
				cell = row[col]
			}
			record[header] = Coerce(cell)
		}
		records = append(records, record)
	}

	return Collection{sheetName: records}
}

// Encode lays out a record in header order. Missing or null values become
// empty cells, nested values are written as JSON text and unknown keys are dropped.
func Encode(record Record, headers []string) []any {
	return lo.Map(headers, func(header string, _ int) any {
		value, ok := record[header]
		if !ok || value == nil {
			return ""
		}
		switch v := value.(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
			return v.String()
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Sprint(v)
			}
			return string(b)
		}
		return value
	})
}

// Coerce converts a cell to a JSON value. Non-empty cells that parse as
// finite numbers become float64, missing cells become "".
func Coerce(cell any) any {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		if n, ok := ParseNumber(v); ok {
			return n
		}
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	}
	return cell
}

// ParseNumber parses a trimmed numeric literal, rejecting NaN and infinities
func ParseNumber(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// cellString renders a cell the way the sheet displays it
func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	return fmt.Sprint(cell)
}
