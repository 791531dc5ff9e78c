package runlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/rlmesh/core"
)

const (
	// DefaultDir is where log files are created when no directory is set.
	DefaultDir = "logs"
	// DefaultPrefix is the file name prefix used when none is set.
	DefaultPrefix = "run"
)

// ErrJournalClosed is returned by Write after Close.
var ErrJournalClosed = errors.New("journal is closed")

// Compile-time check that Journal satisfies core.Journal.
var _ core.Journal = (*Journal)(nil)

// JournalOptions configures a file Journal.
type JournalOptions struct {
	// Dir is the directory holding log files. Defaults to DefaultDir.
	Dir string
	// Prefix is the file name prefix. Defaults to DefaultPrefix.
	Prefix string
	// Now returns the time used to name the file. Defaults to time.Now.
	Now func() time.Time
}

// Journal is a JSONL file sink shared by all invocations of one run.
type Journal struct {
	mu     sync.Mutex
	opts   JournalOptions
	file   *os.File
	w      *bufio.Writer
	path   string
	closed bool
}

// NewJournal creates a journal. No file is touched until the first Write.
func NewJournal(optFns ...func(o *JournalOptions)) *Journal {
	opts := JournalOptions{
		Dir:    DefaultDir,
		Prefix: DefaultPrefix,
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Journal{opts: opts}
}

// FileName returns the log file name for prefix at t, e.g.
// "run_2025-01-02T15-04-05-000000.jsonl".
func FileName(prefix string, t time.Time) string {
	stamp := t.Format("2006-01-02T15:04:05.000000")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("%s_%s.jsonl", prefix, stamp)
}

// Write appends entry as one JSON line and flushes it.
func (j *Journal) Write(entry core.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}
	if err := j.openLocked(); err != nil {
		return err
	}
	if _, err := j.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	if err := j.w.Flush(); err != nil {
		return fmt.Errorf("flush log entry: %w", err)
	}
	return nil
}

// openLocked creates the log file on first use; caller must hold the lock.
func (j *Journal) openLocked() error {
	if j.file != nil {
		return nil
	}
	if err := os.MkdirAll(j.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(j.opts.Dir, FileName(j.opts.Prefix, j.opts.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	j.file = f
	j.w = bufio.NewWriter(f)
	j.path = path
	return nil
}

// Path returns the log file path, or "" when nothing was written yet.
func (j *Journal) Path() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.path
}

// Close flushes and closes the file. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if j.file == nil {
		return nil
	}
	flushErr := j.w.Flush()
	closeErr := j.file.Close()
	return errors.Join(flushErr, closeErr)
}
