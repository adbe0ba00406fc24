// Package mailer sends transactional email such as reservation confirmations.
//
// Delivery itself is an external concern. LogMailer is the production
// default and simply records what would have been sent; CaptureMailer keeps
// messages in memory so development tools and tests can inspect them.
package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Message is one outgoing email.
type Message struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}

// Mailer sends a message. Callers treat failures as non-fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes each message to the logger instead of delivering it.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email queued",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// CaptureMailer stores messages in memory. Safe for concurrent use.
type CaptureMailer struct {
	mu       sync.Mutex
	messages []Message
}

func NewCaptureMailer() *CaptureMailer {
	return &CaptureMailer{}
}

func (m *CaptureMailer) Send(_ context.Context, msg Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far, oldest first.
func (m *CaptureMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Reset drops all captured messages.
func (m *CaptureMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
