package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/domain"
)

func TestGate_EditThenExecuteSendsWorkingCopy(t *testing.T) {
	g := NewGate("msg-1", "SELECT 1")

	g.ToggleEdit()
	require.Equal(t, Editing, g.State())
	require.True(t, g.SetWorkingSQL("SELECT 2"))

	req, ok := g.BeginExecute("sess-1")
	require.True(t, ok)
	assert.Equal(t, "SELECT 2", req.SQL, "execute sends the edited copy")
	assert.Equal(t, "SELECT 1", g.OriginalSQL(), "original proposal never mutates")
	assert.Equal(t, Executing, g.State())
}

func TestGate_SetWorkingSQLOnlyWhileEditing(t *testing.T) {
	g := NewGate("msg-1", "SELECT 1")

	assert.False(t, g.SetWorkingSQL("SELECT 2"), "edits rejected in Proposed")
	assert.Equal(t, "SELECT 1", g.WorkingSQL())

	g.ToggleEdit()
	g.ToggleEdit()
	assert.Equal(t, Proposed, g.State(), "toggle returns to Proposed")
}

func TestGate_ExecuteSuccessEmitsResult(t *testing.T) {
	g := NewGate("msg-1", "SELECT 1")

	req, ok := g.BeginExecute("sess-1")
	require.True(t, ok)

	rows := domain.RowSet{{"n": 1}, {"n": 2}, {"n": 3}}
	event := g.ResolveExecute(req, &domain.ExecuteResult{
		Success:  true,
		Message:  "Query executed successfully.",
		RowCount: 3,
		Data:     rows,
	}, nil)

	require.NotNil(t, event)
	assert.Equal(t, ResolvedSuccess, g.State())
	assert.Equal(t, 3, event.RowCount)
	assert.Equal(t, rows, event.Rows)
	assert.Equal(t, "sess-1", event.Session)

	got, count := g.Result()
	assert.Equal(t, rows, got)
	assert.Equal(t, 3, count)
}

func TestGate_ExecuteFailureStaysInPanel(t *testing.T) {
	g := NewGate("msg-1", "SELECT 1")

	req, _ := g.BeginExecute("sess-1")
	event := g.ResolveExecute(req, nil, errors.New("timeout"))

	assert.Nil(t, event, "failures do not append a conversation turn")
	assert.Equal(t, ResolvedFailure, g.State())
	assert.Equal(t, "timeout", g.ErrorText())
}

func TestGate_ServerSideFailure(t *testing.T) {
	g := NewGate("msg-1", "DROP TABLE users")

	req, _ := g.BeginExecute("sess-1")
	event := g.ResolveExecute(req, &domain.ExecuteResult{
		Success: false,
		Error:   "only SELECT statements allowed",
	}, nil)

	assert.Nil(t, event)
	assert.Equal(t, ResolvedFailure, g.State())
	assert.Equal(t, "only SELECT statements allowed", g.ErrorText())
}

func TestGate_EditAfterFailure(t *testing.T) {
	g := NewGate("msg-1", "SELECT bogus")

	req, _ := g.BeginExecute("sess-1")
	g.ResolveExecute(req, nil, errors.New("no such column: bogus"))
	require.Equal(t, ResolvedFailure, g.State())

	g.ToggleEdit()
	require.Equal(t, Editing, g.State(), "a failed statement can be corrected")
	require.True(t, g.SetWorkingSQL("SELECT fixed"))
	g.ToggleEdit()

	req, ok := g.BeginExecute("sess-1")
	require.True(t, ok)
	assert.Equal(t, "SELECT fixed", req.SQL)
}

func TestGate_NoEditAfterSuccess(t *testing.T) {
	g := NewGate("msg-1", "SELECT 1")

	req, _ := g.BeginExecute("sess-1")
	g.ResolveExecute(req, &domain.ExecuteResult{Success: true}, nil)
	require.Equal(t, ResolvedSuccess, g.State())

	g.ToggleEdit()
	assert.Equal(t, ResolvedSuccess, g.State())
}

func TestGate_NoConcurrentExecute(t *testing.T) {
	g := NewGate("msg-1", "SELECT 1")

	_, ok := g.BeginExecute("sess-1")
	require.True(t, ok)

	_, ok = g.BeginExecute("sess-1")
	assert.False(t, ok, "gate already executing")
}

func TestGate_ReExecuteAfterResolve(t *testing.T) {
	g := NewGate("msg-1", "SELECT 1")

	req, _ := g.BeginExecute("sess-1")
	g.ResolveExecute(req, nil, errors.New("boom"))
	require.Equal(t, ResolvedFailure, g.State())

	_, ok := g.BeginExecute("sess-1")
	assert.True(t, ok, "a resolved gate may re-enter Executing")
	assert.Equal(t, Executing, g.State())
	assert.Empty(t, g.ErrorText(), "stale error cleared on re-execute")
}
