package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/askdb/askdb/internal/domain"
	"github.com/askdb/askdb/internal/session"
)

// ErrorReply is the fixed assistant message appended when a turn fails.
// Internal error detail is never surfaced in the transcript.
const ErrorReply = "Sorry, something went wrong. Please try again."

// State is the turn controller's submission state.
type State int

const (
	Idle State = iota
	Submitting
)

// SubmitRequest is a turn tagged with the session it was issued for. The tag
// lets late-arriving responses be dropped after a reset.
type SubmitRequest struct {
	Query   string
	Session string
}

// GateResult is the event an approval gate emits after a successful
// execution. The controller turns it into a normal appended assistant turn.
type GateResult struct {
	Session  string
	SQL      string
	Message  string
	RowCount int
	Rows     domain.RowSet
}

// Controller drives one request/response cycle at a time against the agent.
// It owns the Submitting guard, the optimistic user append, and the
// stale-session drop rule. It performs no IO itself: BeginSubmit hands out a
// tagged request, the caller performs the transport call, and ResolveSubmit
// consumes the outcome.
type Controller struct {
	mu       sync.Mutex
	log      *Log
	sessions *session.Manager
	state    State
	active   string
}

// NewController acquires the active session from the manager.
func NewController(l *Log, sessions *session.Manager) *Controller {
	return &Controller{
		log:      l,
		sessions: sessions,
		active:   sessions.GetOrCreate(),
	}
}

// Session returns the active session token.
func (c *Controller) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// State returns the current submission state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BeginSubmit starts a turn. It is a no-op (false) for empty or
// whitespace-only input and while another submission is in flight. On
// success the user message is appended immediately, before any network
// activity, so the transcript always reflects submitted input.
func (c *Controller) BeginSubmit(text string) (SubmitRequest, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return SubmitRequest{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return SubmitRequest{}, false
	}
	c.state = Submitting

	c.log.Append(domain.Message{
		ID:        domain.NewMessageID(),
		Role:      domain.RoleUser,
		Content:   trimmed,
		CreatedAt: time.Now(),
	})

	return SubmitRequest{Query: trimmed, Session: c.active}, true
}

// ResolveSubmit consumes the outcome of a turn. Results tagged with a
// session that is no longer active are dropped. On success the assistant
// message built from the payload is appended and returned; a rotated session
// token from the server becomes the active one. On failure the fixed error
// reply is appended. The user message is never rolled back; retry is a
// fresh BeginSubmit.
func (c *Controller) ResolveSubmit(req SubmitRequest, resp *domain.TurnResponse, err error) *domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Session != c.active {
		log.Debug().Str("stale", req.Session).Msg("dropping response for rotated session")
		return nil
	}
	c.state = Idle

	if err != nil {
		log.Error().Err(err).Msg("turn submission failed")
		c.log.Append(domain.Message{
			ID:        domain.NewMessageID(),
			Role:      domain.RoleAssistant,
			Content:   ErrorReply,
			CreatedAt: time.Now(),
		})
		return nil
	}

	if resp.SessionID != "" && resp.SessionID != c.active {
		c.active = resp.SessionID
	}

	msg := domain.Message{
		ID:               domain.NewMessageID(),
		Role:             domain.RoleAssistant,
		Content:          resp.Answer,
		ChartData:        resp.ChartData,
		ProposedSQL:      resp.SQLQuery,
		RequiresApproval: resp.RequiresApproval && resp.SQLQuery != "",
		CreatedAt:        time.Now(),
	}
	c.log.Append(msg)
	return &msg
}

// ResolveGate appends the assistant turn for a successful gate execution.
// Results for a rotated session are dropped, same as turn responses.
func (c *Controller) ResolveGate(res GateResult) *domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Session != c.active {
		log.Debug().Str("stale", res.Session).Msg("dropping gate result for rotated session")
		return nil
	}

	content := res.Message
	if content == "" {
		content = "Query executed successfully."
	}
	content = fmt.Sprintf("%s\n\nReturned %d row(s).", content, res.RowCount)

	msg := domain.Message{
		ID:        domain.NewMessageID(),
		Role:      domain.RoleAssistant,
		Content:   content,
		Result:    res.Rows,
		CreatedAt: time.Now(),
	}
	c.log.Append(msg)
	return &msg
}

// Reset clears the transcript to the seeded greeting and rotates the
// session. Any in-flight submission's eventual result will carry the old
// tag and be dropped on arrival. Returns the new session token.
func (c *Controller) Reset() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Reset()
	c.sessions.Reset()
	c.active = c.sessions.GetOrCreate()
	c.state = Idle
	return c.active
}
