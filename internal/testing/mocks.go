package testing

import (
	"context"
	"fmt"
	"sync"
)

// MockFetcher is a mock implementation of registry.Fetcher for testing
type MockFetcher struct {
	mu    sync.RWMutex
	data  map[string][]byte
	err   error
	calls []string
}

// NewMockFetcher creates a new mock fetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		data: make(map[string][]byte),
	}
}

// SetData sets the bytes returned for a source
func (m *MockFetcher) SetData(source string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[source] = data
}

// SetError sets the error to return for every source
func (m *MockFetcher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Fetch returns the configured bytes
func (m *MockFetcher) Fetch(_ context.Context, source string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, source)
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.data[source]
	if !ok {
		return nil, fmt.Errorf("mock: no data for %s", source)
	}
	return data, nil
}

// Calls returns the sources fetched so far
func (m *MockFetcher) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
