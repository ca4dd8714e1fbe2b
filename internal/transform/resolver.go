package transform

import (
	"fmt"
	"strings"

	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/internal/types"
)

// Strategy maps row ids to grid positions
type Strategy string

const (
	// StrategyOffset uses the 1-based sheet row number as the id, so the first data row is 2
	StrategyOffset Strategy = "offset"
	// StrategyScan uses the value of the row's first column as the id
	StrategyScan Strategy = "scan"
)

// ParseStrategy validates a configured strategy name
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case StrategyOffset, StrategyScan:
		return s, nil
	case "":
		return StrategyOffset, nil
	}
	return "", fmt.Errorf("unsupported row id strategy: %s", name)
}

// rowID is the id assigned to the data row at index (0-based within data rows)
func (s Strategy) rowID(index int, row []any) any {
	if s == StrategyScan {
		if len(row) == 0 {
			return ""
		}
		return Coerce(row[0])
	}
	return index + 2
}

// Resolver finds the grid position of a row id
type Resolver struct {
	Strategy Strategy
}

// NewResolver creates a resolver for the strategy
func NewResolver(strategy Strategy) *Resolver {
	return &Resolver{Strategy: strategy}
}

// Resolve returns the 1-based sheet position for id. The header row is never returned.
// Offset positions past the end of the grid are valid.
func (r *Resolver) Resolve(id string, grid sheets.Grid) (int, error) {
	id = strings.TrimSpace(id)

	if r.Strategy == StrategyScan {
		for i := 1; i < len(grid); i++ {
			if len(grid[i]) > 0 && matchesID(grid[i][0], id) {
				return i + 1, nil
			}
		}
		return 0, types.NotFound(fmt.Sprintf("Row '%s' not found", id))
	}

	pos, ok := types.RowID(id).Int()
	if !ok {
		return 0, types.BadRequest(fmt.Sprintf("Invalid row id '%s'", id))
	}
	if pos < 2 || pos > sheets.MaxRows {
		return 0, types.NotFound(fmt.Sprintf("Row '%s' not found", id))
	}
	return pos, nil
}

// matchesID compares a first-column cell to id by its displayed or coerced form
func matchesID(cell any, id string) bool {
	raw := strings.TrimSpace(cellString(cell))
	if raw == "" || id == "" {
		return false
	}
	return raw == id || cellString(Coerce(cell)) == id
}
