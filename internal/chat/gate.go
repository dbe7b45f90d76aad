package chat

import (
	"sync"

	"github.com/askdb/askdb/internal/domain"
)

// GateState is the per-message approval sub-state.
type GateState int

const (
	Proposed GateState = iota
	Editing
	Executing
	ResolvedSuccess
	ResolvedFailure
)

// ExecutionRequest carries the working SQL and its session tag to the
// execution collaborator.
type ExecutionRequest struct {
	SQL       string
	Session   string
	MessageID string
}

// Gate is the confirm-before-execute step for one agent-proposed SQL
// statement. It gates display and execution of the statement; refusing
// unsafe SQL is the executing side's job, not the gate's.
//
// Gates are independent per message: several may be Executing at once,
// alongside a turn submission. Their only shared touch point is the final
// append, which goes through Controller.ResolveGate.
type Gate struct {
	mu        sync.Mutex
	messageID string
	original  string
	working   string
	state     GateState

	rowCount int
	rows     domain.RowSet
	errText  string
}

// NewGate creates a gate for the proposed SQL carried by messageID.
func NewGate(messageID, proposedSQL string) *Gate {
	return &Gate{
		messageID: messageID,
		original:  proposedSQL,
		working:   proposedSQL,
	}
}

func (g *Gate) MessageID() string { return g.messageID }

// OriginalSQL returns the statement as the agent proposed it. It never
// changes, regardless of edits.
func (g *Gate) OriginalSQL() string { return g.original }

// WorkingSQL returns the current working copy, the text that will be sent
// on execute.
func (g *Gate) WorkingSQL() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.working
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ErrorText returns the failure description shown inside the gate panel.
func (g *Gate) ErrorText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errText
}

// Result returns the resolved row data, if any.
func (g *Gate) Result() (domain.RowSet, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rows, g.rowCount
}

// ToggleEdit enters Editing from Proposed or ResolvedFailure, so a failed
// statement can be corrected and retried. Leaving Editing returns to
// Proposed. Ignored while a request is in flight or after success.
func (g *Gate) ToggleEdit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case Proposed, ResolvedFailure:
		g.state = Editing
	case Editing:
		g.state = Proposed
	}
}

// SetWorkingSQL replaces the working copy. Valid only while Editing.
func (g *Gate) SetWorkingSQL(sql string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Editing {
		return false
	}
	g.working = sql
	return true
}

// BeginExecute transitions to Executing and returns the request carrying the
// current working copy, tagged with the given session. A resolved gate may
// re-execute; a gate already Executing may not.
func (g *Gate) BeginExecute(sessionToken string) (ExecutionRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Executing {
		return ExecutionRequest{}, false
	}
	g.state = Executing
	g.errText = ""
	return ExecutionRequest{
		SQL:       g.working,
		Session:   sessionToken,
		MessageID: g.messageID,
	}, true
}

// ResolveExecute consumes the execution outcome. On success the gate
// resolves and emits a GateResult for the controller to append; the event is
// how results re-enter the conversation as an ordered turn instead of
// mutating history. On failure the gate resolves with an error shown only in
// its own panel and emits nothing.
func (g *Gate) ResolveExecute(req ExecutionRequest, result *domain.ExecuteResult, err error) *GateResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err != nil {
		g.state = ResolvedFailure
		g.errText = err.Error()
		return nil
	}
	if !result.Success {
		g.state = ResolvedFailure
		g.errText = result.Error
		if g.errText == "" {
			g.errText = "query execution failed"
		}
		return nil
	}

	g.state = ResolvedSuccess
	g.rowCount = result.RowCount
	g.rows = result.Data

	return &GateResult{
		Session:  req.Session,
		SQL:      req.SQL,
		Message:  result.Message,
		RowCount: result.RowCount,
		Rows:     result.Data,
	}
}
