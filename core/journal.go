package core

// Journal is the append-only destination for the execution log of one
// top-level run. Implementations must write each entry atomically even when
// called from concurrent branches.
type Journal interface {
	Write(entry LogEntry) error
	// Path returns where entries are persisted, or "" when not applicable
	// (or not yet created).
	Path() string
	Close() error
}
