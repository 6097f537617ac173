package main

import (
	"sync"

	"github.com/go-jose/go-jose/v4"

	"token-gen/keystore"
)

// MockKeys is an in-memory keystore.Provider for testing
type MockKeys struct {
	mu    sync.Mutex
	Key   *jose.JSONWebKey
	Calls int

	// Error simulation
	Err error
}

func (m *MockKeys) LoadOrGenerate() (*jose.JSONWebKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Key == nil {
		key, err := keystore.Generate()
		if err != nil {
			return nil, err
		}
		m.Key = key
	}
	return m.Key, nil
}

var _ keystore.Provider = (*MockKeys)(nil)
