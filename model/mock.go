package model

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/rlmesh/core"
)

// ErrScriptExhausted is returned by MockGenerator when no reply is left.
var ErrScriptExhausted = errors.New("mock generator has no scripted reply left")

// Compile-time check that MockGenerator satisfies CodeGenerator.
var _ CodeGenerator = (*MockGenerator)(nil)

// MockReply is one scripted assistant reply.
type MockReply struct {
	Content   string
	Reasoning string
	Usage     core.Usage
	Err       error
}

// MockGenerator is a lightweight in-memory CodeGenerator useful for tests &
// examples. Replies are scripted per model id or chosen by a function of the
// request. It is safe for concurrent use.
type MockGenerator struct {
	mu       sync.Mutex
	scripts  map[string][]MockReply
	fallback []MockReply
	respond  func(req Request) MockReply
	requests []Request
}

// NewMockGenerator creates a generator answering from fallback in order.
func NewMockGenerator(fallback ...MockReply) *MockGenerator {
	return &MockGenerator{scripts: map[string][]MockReply{}, fallback: fallback}
}

// NewMockGeneratorFunc creates a generator computing every reply from the
// request, e.g. to answer based on the last transcript turn.
func NewMockGeneratorFunc(fn func(req Request) MockReply) *MockGenerator {
	return &MockGenerator{scripts: map[string][]MockReply{}, respond: fn}
}

// Script queues replies for requests with the given model id. Scripted
// replies take precedence over the fallback.
func (m *MockGenerator) Script(modelID string, replies ...MockReply) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scripts[modelID] = append(m.scripts[modelID], replies...)
	return m
}

// Generate implements CodeGenerator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	reply, err := m.next(req)
	if err != nil {
		return Response{}, err
	}
	if reply.Err != nil {
		return Response{}, reply.Err
	}
	return NewResponse(reply.Content, reply.Reasoning, reply.Usage.Clone()), nil
}

func (m *MockGenerator) next(req Request) (MockReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Transcript = append([]core.Message(nil), req.Transcript...)
	m.requests = append(m.requests, req)

	if queue := m.scripts[req.Model]; len(queue) > 0 {
		m.scripts[req.Model] = queue[1:]
		return queue[0], nil
	}
	if len(m.fallback) > 0 {
		r := m.fallback[0]
		m.fallback = m.fallback[1:]
		return r, nil
	}
	if m.respond != nil {
		return m.respond(req), nil
	}
	return MockReply{}, ErrScriptExhausted
}

// Requests returns copies of every request received so far.
func (m *MockGenerator) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Info implements CodeGenerator.
func (m *MockGenerator) Info() Info { return Info{Name: "mock", Provider: "mock"} }
