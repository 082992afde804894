package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider replays canned responses in order
type MockProvider struct {
	Responses []func(req Request) (*Response, error)

	mu        sync.Mutex
	callCount int
	requests  []Request
}

func (m *MockProvider) CreateChatCompletion(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	if m.callCount >= len(m.Responses) {
		n := m.callCount
		m.mu.Unlock()
		return nil, fmt.Errorf("unexpected call to CreateChatCompletion: call count %d, response count %d", n, len(m.Responses))
	}
	respond := m.Responses[m.callCount]
	m.callCount++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	return respond(req)
}

// CallCount returns how many calls were made
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns the requests received so far
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func SimpleTextResponse(text string) func(req Request) (*Response, error) {
	return func(req Request) (*Response, error) {
		return &Response{
			Model: req.Model,
			Choices: []Choice{
				{Message: Message{Role: "assistant", Content: text}, FinishReason: "stop"},
			},
		}, nil
	}
}

func ErrorResponse(err error) func(req Request) (*Response, error) {
	return func(req Request) (*Response, error) {
		return nil, err
	}
}
