package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mcoot/minimarket/internal/model"
)

// Managers is the application's lookup table of named long-lived services
type Managers struct {
	mu       sync.RWMutex
	managers map[string]any
}

// NewManagers creates an empty lookup table
func NewManagers() *Managers {
	return &Managers{managers: make(map[string]any)}
}

// Register adds a manager under name. Names are unique.
func (m *Managers) Register(name string, manager any) error {
	if name == "" || manager == nil {
		return fmt.Errorf("%w: manager name and value are required", model.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.managers[name]; exists {
		return fmt.Errorf("%w: manager %q already registered", model.ErrInvalidArgument, name)
	}
	m.managers[name] = manager
	return nil
}

// Lookup returns the manager registered under name
func (m *Managers) Lookup(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	manager, ok := m.managers[name]
	return manager, ok
}

// Names returns the registered names in sorted order
func (m *Managers) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.managers))
	for name := range m.managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupAs returns the manager registered under name if it has type T
func LookupAs[T any](m *Managers, name string) (T, bool) {
	var zero T
	manager, ok := m.Lookup(name)
	if !ok {
		return zero, false
	}
	typed, ok := manager.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
