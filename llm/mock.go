package llm

import (
	"context"
	"errors"
	"sync"
)

// Mock is a scripted Client for tests and local runs. Responses are
// consumed in order; when they run out, Fn (if set) answers instead.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Fn        func(prompt Prompt) (string, error)
	Calls     []Prompt
}

func (m *Mock) Complete(_ context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, prompt)
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}
	if m.Fn != nil {
		return m.Fn(prompt)
	}
	return "", errors.New("llm: mock has no response left")
}
