package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message represents a single turn in the conversation log
type Message struct {
	ID               string       `json:"id"`
	Role             MessageRole  `json:"role"`
	Content          string       `json:"content"`
	ChartData        []ChartPoint `json:"chart_data,omitempty"`
	Result           RowSet       `json:"result,omitempty"`
	ProposedSQL      string       `json:"proposed_sql,omitempty"`
	RequiresApproval bool         `json:"requires_approval,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// NewMessageID returns an identifier that is unique within a log and sorts
// roughly by creation time (millisecond timestamp plus a random suffix).
func NewMessageID() string {
	return fmt.Sprintf("%x-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// NewSessionToken mints an opaque session identifier. The time prefix keeps
// tokens collision-resistant across concurrent clients on the same machine.
func NewSessionToken() string {
	return fmt.Sprintf("%x-%s", time.Now().UnixMilli(), uuid.NewString())
}
