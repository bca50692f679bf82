package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is a thread-safe in-memory Store for development and tests. Tests can
// inject failures via SetSaveErr/SetLoadErr to exercise degradation paths.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string]json.RawMessage // patientID -> key -> value
	saveErr error
	loadErr error
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]map[string]json.RawMessage)}
}

// SetSaveErr makes every subsequent Save fail with err until reset with nil.
func (m *Memory) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// SetLoadErr makes every subsequent Load fail with err until reset with nil.
func (m *Memory) SetLoadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

func (m *Memory) Load(_ context.Context, patientID, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, m.loadErr)
	}
	raw, ok := m.records[patientID][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *Memory) Save(_ context.Context, patientID, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, m.saveErr)
	}
	if m.records[patientID] == nil {
		m.records[patientID] = make(map[string]json.RawMessage)
	}
	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	m.records[patientID][key] = stored
	return nil
}

func (m *Memory) Delete(_ context.Context, patientID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, m.saveErr)
	}
	delete(m.records[patientID], key)
	return nil
}
