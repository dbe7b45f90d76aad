package history

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/askdb/askdb/internal/domain"
)

// Loader fetches prior turns for a session. Satisfied by client.HTTP.
type Loader interface {
	LoadHistory(ctx context.Context, session string) (*domain.HistoryResponse, error)
}

// Hydrator populates the conversation log from server-side history once per
// session acquisition.
type Hydrator struct {
	loader Loader
}

func NewHydrator(loader Loader) *Hydrator {
	return &Hydrator{loader: loader}
}

// Hydrate returns the session's prior turns in server order, or nil when
// there are none. Failures are logged and swallowed: hydration must never
// block the chat from becoming usable, the caller just falls back to the
// seeded greeting. Historical turns carry only role and content; structured
// payloads are best-effort and absent here.
func (h *Hydrator) Hydrate(ctx context.Context, session string) []domain.Message {
	if session == "" {
		return nil
	}

	resp, err := h.loader.LoadHistory(ctx, session)
	if err != nil {
		log.Warn().Err(err).Msg("history hydration failed, starting fresh")
		return nil
	}
	if len(resp.Messages) == 0 {
		return nil
	}

	msgs := make([]domain.Message, 0, len(resp.Messages))
	for _, hm := range resp.Messages {
		role := domain.MessageRole(hm.Role)
		if role != domain.RoleUser && role != domain.RoleAssistant {
			log.Warn().Str("role", hm.Role).Msg("skipping history turn with unknown role")
			continue
		}
		msgs = append(msgs, domain.Message{
			ID:        domain.NewMessageID(),
			Role:      role,
			Content:   hm.Content,
			CreatedAt: time.Now(),
		})
	}
	return msgs
}
