package runlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/rlmesh/core"
)

// maxLineSize bounds a single log line. Outputs are stored untruncated, so
// lines can be far larger than bufio's default.
const maxLineSize = 64 << 20

// ReadFile decodes every entry of a JSONL log file.
func ReadFile(path string) ([]core.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads newline-delimited entries from r. Blank lines are skipped.
func Decode(r io.Reader) ([]core.LogEntry, error) {
	entries := []core.LogEntry{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e core.LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return entries, nil
}
