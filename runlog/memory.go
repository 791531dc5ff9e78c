package runlog

import (
	"sync"

	"github.com/hupe1980/rlmesh/core"
)

// Compile-time check that MemoryJournal satisfies core.Journal.
var _ core.Journal = (*MemoryJournal)(nil)

// MemoryJournal is a volatile Journal keeping entries in a process local
// slice. It is safe for concurrent access and best suited for tests or
// embedding where no file should be written. Returned entries are copies.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []core.LogEntry
	closed  bool
}

// NewMemoryJournal constructs an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Write appends entry.
func (m *MemoryJournal) Write(entry core.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrJournalClosed
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of everything written so far.
func (m *MemoryJournal) Entries() []core.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Filter returns the entries matching keep, in write order.
func (m *MemoryJournal) Filter(keep func(core.LogEntry) bool) []core.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.LogEntry
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Path always returns "".
func (m *MemoryJournal) Path() string { return "" }

// Close marks the journal closed. Entries stay readable.
func (m *MemoryJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
