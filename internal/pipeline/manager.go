package pipeline

import (
	"sync"

	"docmind/internal/helper"
)

// DefaultSessionID is used when the caller does not isolate a workspace.
const DefaultSessionID = "default"

// Manager hands out isolated sessions keyed by id, creating them on demand
// through the supplied factory.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  func() *Session
}

func NewManager(factory func() *Session) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Get returns the session for id, creating it if needed. An empty id maps to
// the default session.
func (m *Manager) Get(id string) *Session {
	if id == "" {
		id = DefaultSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := m.factory()
	m.sessions[id] = s
	return s
}

// Create allocates a fresh session under a random id.
func (m *Manager) Create() (string, *Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.factory()
	m.sessions[id] = s
	return id, s, nil
}
