package code

import (
	"bytes"
	"sync"
)

// syncBuffer collects stdout and stderr of an environment. Snippets may print
// from several goroutines at once.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

// Drain returns the buffered text and empties the buffer.
func (b *syncBuffer) Drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.buf.String()
	b.buf.Reset()
	return s
}
