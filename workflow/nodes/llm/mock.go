package llm

import (
	"context"
	"errors"
	"sync"
)

// Mock is a scripted ChatModel for tests: responses are returned in
// order, then the last one repeats. It records every request it sees.
type Mock struct {
	mu        sync.Mutex
	responses []Response
	err       error
	requests  []Request
	calls     int
}

// NewMock returns a mock replying with the given responses.
func NewMock(responses ...Response) *Mock {
	return &Mock{responses: responses}
}

// Fail makes every Complete call return err.
func (m *Mock) Fail(err error) *Mock {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return m
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Complete records the request and replies per the script.
func (m *Mock) Complete(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	m.calls++
	if m.err != nil {
		return Response{}, m.err
	}
	if len(m.responses) == 0 {
		return Response{}, errors.New("mock has no scripted responses")
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

// Requests returns a copy of the requests received so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many Complete calls were made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
