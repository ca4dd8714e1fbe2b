package services

import "sync"

// SheetLocks serializes writes per sheet within the process
type SheetLocks struct {
	mu    sync.Mutex
	locks map[string]*sheetLock
}

type sheetLock struct {
	mu   sync.Mutex
	refs int
}

// NewSheetLocks creates an empty lock table
func NewSheetLocks() *SheetLocks {
	return &SheetLocks{locks: make(map[string]*sheetLock)}
}

// Lock blocks until key is free and returns its unlock function.
// A nil table never blocks.
func (l *SheetLocks) Lock(key string) func() {
	if l == nil {
		return func() {}
	}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &sheetLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len is the number of keys currently held or waited on
func (l *SheetLocks) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
