package testutils

import (
	"context"
	"fmt"
)

// GeneratorCall records a single Generate invocation
type GeneratorCall struct {
	System string
	Prompt string
}

// MockGenerator is a test text generator that replays scripted responses
// and records every call it receives
type MockGenerator struct {
	// Responses are returned in order; when exhausted, Generate returns
	// "mock response"
	Responses []string

	// Calls records every Generate invocation, in order
	Calls []GeneratorCall

	// Err causes every Generate call to fail when set
	Err error

	next int
}

func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{Responses: responses}
}

func (m *MockGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	m.Calls = append(m.Calls, GeneratorCall{System: system, Prompt: prompt})

	if m.Err != nil {
		return "", fmt.Errorf("mock generation failure: %w", m.Err)
	}

	if m.next < len(m.Responses) {
		resp := m.Responses[m.next]
		m.next++
		return resp, nil
	}

	return "mock response", nil
}

func (m *MockGenerator) Close() error {
	return nil
}
