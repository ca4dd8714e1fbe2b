package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemory() (*MemoryStore, Ref) {
	m := NewMemoryStore()
	m.Put("ss1", "Sheet1", Grid{
		{"name", "age"},
		{"Alice", float64(30)},
		{"Bob"},
	})
	m.Put("ss1", "Other", Grid{{"x"}})
	return m, Ref{SpreadsheetID: "ss1", SheetName: "Sheet1"}
}

func TestMemoryStoreReadAll(t *testing.T) {
	m, ref := seededMemory()

	grid, err := m.ReadAll(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, Grid{
		{"name", "age"},
		{"Alice", float64(30)},
		{"Bob", ""},
	}, grid)
}

func TestMemoryStoreMissing(t *testing.T) {
	m, _ := seededMemory()
	ctx := context.Background()

	_, err := m.ReadAll(ctx, Ref{SpreadsheetID: "nope", SheetName: "Sheet1"})
	assert.ErrorIs(t, err, ErrSpreadsheetNotFound)

	_, err = m.ReadAll(ctx, Ref{SpreadsheetID: "ss1", SheetName: "Nope"})
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestMemoryStoreAppendParsesNumbers(t *testing.T) {
	m, ref := seededMemory()
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, ref, [][]any{{"Carol", "25"}}))

	grid, err := m.ReadAll(ctx, ref)
	require.NoError(t, err)
	require.Len(t, grid, 4)
	assert.Equal(t, []any{"Carol", float64(25)}, grid[3])
}

func TestMemoryStoreAppendAfterClearedTail(t *testing.T) {
	m, ref := seededMemory()
	ctx := context.Background()

	require.NoError(t, m.ClearAt(ctx, ref, 3))
	require.NoError(t, m.Append(ctx, ref, [][]any{{"Dave", "40"}}))

	grid, err := m.ReadAll(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, Grid{
		{"name", "age"},
		{"Alice", float64(30)},
		{"Dave", float64(40)},
	}, grid)
}

func TestMemoryStoreUpdateAt(t *testing.T) {
	m, ref := seededMemory()
	ctx := context.Background()

	require.NoError(t, m.UpdateAt(ctx, ref, 2, []any{"Alicia", "31"}))
	require.NoError(t, m.UpdateAt(ctx, ref, 6, []any{"Eve"}))

	grid, err := m.ReadAll(ctx, ref)
	require.NoError(t, err)
	require.Len(t, grid, 6)
	assert.Equal(t, []any{"Alicia", float64(31)}, grid[1])
	assert.Equal(t, []any{"", ""}, grid[3])
	assert.Equal(t, []any{"Eve", ""}, grid[5])

	assert.ErrorIs(t, m.UpdateAt(ctx, ref, 0, []any{"x"}), ErrInvalidPosition)

	// positions past the sheet limit never grow the grid
	assert.ErrorIs(t, m.UpdateAt(ctx, ref, MaxRows+1, []any{"x"}), ErrInvalidPosition)
	assert.Len(t, m.Raw(ref.SpreadsheetID, ref.SheetName), 6)
}

func TestMemoryStoreClearAt(t *testing.T) {
	m, ref := seededMemory()
	ctx := context.Background()

	require.NoError(t, m.ClearAt(ctx, ref, 2))
	require.NoError(t, m.ClearAt(ctx, ref, 2))
	require.NoError(t, m.ClearAt(ctx, ref, 99))

	grid, err := m.ReadAll(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, Grid{
		{"name", "age"},
		{"", ""},
		{"Bob", ""},
	}, grid)
}

func TestMemoryStoreSheetNames(t *testing.T) {
	m, _ := seededMemory()

	names, err := m.SheetNames(context.Background(), "ss1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Other"}, names)
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	m, ref := seededMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.ReadAll(ctx, ref)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstrumentPassesThrough(t *testing.T) {
	m, ref := seededMemory()
	s := Instrument(m)

	assert.Same(t, s, Instrument(s))
	assert.Equal(t, "memory", s.Backend())

	grid, err := s.ReadAll(context.Background(), ref)
	require.NoError(t, err)
	assert.Len(t, grid, 3)
}
