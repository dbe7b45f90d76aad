package session

import (
	"github.com/rs/zerolog/log"

	"github.com/askdb/askdb/internal/domain"
)

// Manager owns session identity. All turn submissions and history loads use
// the token it hands out until Reset.
//
// Two processes racing GetOrCreate on a cold store may each mint a token;
// the last write wins. That matches the source behavior and is accepted.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// GetOrCreate returns the persisted token, minting and persisting a new one
// if none exists. Idempotent with respect to already-persisted state.
func (m *Manager) GetOrCreate() string {
	if token, ok := m.store.Get(); ok {
		return token
	}

	token := domain.NewSessionToken()
	if err := m.store.Set(token); err != nil {
		// Degraded, session-less mode: the token still scopes this process.
		log.Warn().Err(err).Msg("failed to persist session token")
	}
	return token
}

// Reset clears the persisted token. It does not mint a replacement; the next
// GetOrCreate call performs creation.
func (m *Manager) Reset() {
	if err := m.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear session token")
	}
}
