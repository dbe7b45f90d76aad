package memory

import (
	"context"
	"sync"

	"github.com/askdb/askdb/internal/domain"
)

// History stores per-session conversation turns. Only role and content are
// retained; structured payloads (charts, SQL) are not persisted, so hydrated
// turns come back without them.
type History interface {
	Append(ctx context.Context, session string, msgs ...domain.HistoryMessage) error
	Messages(ctx context.Context, session string) ([]domain.HistoryMessage, error)
	Clear(ctx context.Context, session string) error
	Exists(ctx context.Context, session string) (bool, error)
}

// InMemory keeps history in process memory. The default backend; suitable
// for a single local daemon, lost on restart.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string][]domain.HistoryMessage
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string][]domain.HistoryMessage)}
}

func (m *InMemory) Append(ctx context.Context, session string, msgs ...domain.HistoryMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session] = append(m.sessions[session], msgs...)
	return nil
}

func (m *InMemory) Messages(ctx context.Context, session string) ([]domain.HistoryMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.HistoryMessage(nil), m.sessions[session]...), nil
}

func (m *InMemory) Clear(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, session)
	return nil
}

func (m *InMemory) Exists(ctx context.Context, session string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[session]
	return ok, nil
}
