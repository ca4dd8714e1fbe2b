package sheets

import (
	"context"
	"fmt"
	"sync"
)

type memorySpreadsheet struct {
	order  []string
	sheets map[string]Grid
}

// MemoryStore keeps spreadsheets in process memory. Written values are
// parsed the way USER_ENTERED input is.
type MemoryStore struct {
	mu           sync.RWMutex
	spreadsheets map[string]*memorySpreadsheet
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		spreadsheets: make(map[string]*memorySpreadsheet),
	}
}

// Backend names the store
func (m *MemoryStore) Backend() string {
	return "memory"
}

// Put replaces a sheet's grid, creating the spreadsheet and sheet as needed
func (m *MemoryStore) Put(spreadsheetID, sheetName string, grid Grid) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ss, ok := m.spreadsheets[spreadsheetID]
	if !ok {
		ss = &memorySpreadsheet{sheets: make(map[string]Grid)}
		m.spreadsheets[spreadsheetID] = ss
	}
	if _, exists := ss.sheets[sheetName]; !exists {
		ss.order = append(ss.order, sheetName)
	}
	ss.sheets[sheetName] = copyGrid(grid)
}

// Raw returns the stored grid without normalization
func (m *MemoryStore) Raw(spreadsheetID, sheetName string) Grid {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ss, ok := m.spreadsheets[spreadsheetID]
	if !ok {
		return nil
	}
	return copyGrid(ss.sheets[sheetName])
}

func (m *MemoryStore) sheet(ref Ref) (Grid, error) {
	ss, ok := m.spreadsheets[ref.SpreadsheetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpreadsheetNotFound, ref.SpreadsheetID)
	}
	grid, ok := ss.sheets[ref.SheetName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, ref.SheetName)
	}
	return grid, nil
}

// ReadAll returns the populated rows of the sheet
func (m *MemoryStore) ReadAll(ctx context.Context, ref Ref) (Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	grid, err := m.sheet(ref)
	if err != nil {
		return nil, err
	}
	return Normalize(grid), nil
}

// Append adds rows after the last populated row
func (m *MemoryStore) Append(ctx context.Context, ref Ref, rows [][]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	grid, err := m.sheet(ref)
	if err != nil {
		return err
	}

	grid = Normalize(grid)
	for _, row := range rows {
		grid = append(grid, enterRow(row))
	}
	m.spreadsheets[ref.SpreadsheetID].sheets[ref.SheetName] = grid
	return nil
}

// UpdateAt writes row over the cells at pos, growing the sheet when needed
func (m *MemoryStore) UpdateAt(ctx context.Context, ref Ref, pos int, row []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pos < 1 || pos > MaxRows {
		return ErrInvalidPosition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	grid, err := m.sheet(ref)
	if err != nil {
		return err
	}

	for len(grid) < pos {
		grid = append(grid, []any{})
	}
	target := grid[pos-1]
	for i, v := range enterRow(row) {
		if i < len(target) {
			target[i] = v
		} else {
			target = append(target, v)
		}
	}
	grid[pos-1] = target

	m.spreadsheets[ref.SpreadsheetID].sheets[ref.SheetName] = grid
	return nil
}

// ClearAt empties the row at pos. Positions past the end are a no-op.
func (m *MemoryStore) ClearAt(ctx context.Context, ref Ref, pos int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pos < 1 {
		return ErrInvalidPosition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	grid, err := m.sheet(ref)
	if err != nil {
		return err
	}
	if pos <= len(grid) {
		grid[pos-1] = make([]any, len(grid[pos-1]))
		for i := range grid[pos-1] {
			grid[pos-1][i] = ""
		}
	}
	return nil
}

// SheetNames lists the sheets in insertion order
func (m *MemoryStore) SheetNames(ctx context.Context, spreadsheetID, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ss, ok := m.spreadsheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpreadsheetNotFound, spreadsheetID)
	}
	return append([]string{}, ss.order...), nil
}

// Check always succeeds
func (m *MemoryStore) Check(context.Context) error {
	return nil
}

func enterRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = UserEntered(v)
	}
	return out
}

func copyGrid(grid Grid) Grid {
	if grid == nil {
		return nil
	}
	out := make(Grid, len(grid))
	for i, row := range grid {
		out[i] = append([]any{}, row...)
	}
	return out
}
