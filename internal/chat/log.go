package chat

import (
	"sync"
	"time"

	"github.com/askdb/askdb/internal/domain"
)

// Greeting is the seeded assistant message an empty conversation opens with.
const Greeting = "Hello! I'm your SQL data analyst. Upload a CSV or Excel file " +
	"and ask me anything about your data, e.g. \"What are the top 5 categories by revenue?\""

// Log is the ordered conversation transcript: the single source of truth for
// what is rendered. Mutation is append-only apart from Reset and the one-time
// hydration Restore.
type Log struct {
	mu   sync.Mutex
	msgs []domain.Message
}

// NewLog returns a log seeded with the greeting message.
func NewLog() *Log {
	return &Log{msgs: []domain.Message{seededGreeting()}}
}

func seededGreeting() domain.Message {
	return domain.Message{
		ID:        domain.NewMessageID(),
		Role:      domain.RoleAssistant,
		Content:   Greeting,
		CreatedAt: time.Now(),
	}
}

// Append adds a message at the end of the transcript.
func (l *Log) Append(msg domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

// Restore replaces the transcript with hydrated history. An empty history
// restores the seeded greeting. Used only on session acquisition.
func (l *Log) Restore(msgs []domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(msgs) == 0 {
		l.msgs = []domain.Message{seededGreeting()}
		return
	}
	l.msgs = append([]domain.Message(nil), msgs...)
}

// Reset replaces the whole transcript with the seeded greeting.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = []domain.Message{seededGreeting()}
}

// Messages returns a copy of the transcript in render order.
func (l *Log) Messages() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Message(nil), l.msgs...)
}

// Len returns the number of messages in the transcript.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

// Last returns the most recent message.
func (l *Log) Last() domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.msgs[len(l.msgs)-1]
}
