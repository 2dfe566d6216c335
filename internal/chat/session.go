package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/notify"
)

type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
}

// Asker is satisfied by *Client.
type Asker interface {
	Ask(ctx context.Context, query string) (Answer, error)
}

// Session is the shared chat transcript.
type Session struct {
	mu       sync.Mutex
	messages []Message

	asker    Asker
	notifier notify.Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
	nowFn    func() time.Time
}

func NewSession(log zerolog.Logger, asker Asker, notifier notify.Notifier, m *metrics.Metrics) *Session {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Session{asker: asker, notifier: notifier, metrics: m, log: log, nowFn: time.Now}
}

// Send appends the user's query and the assistant reply. On failure an inline
// error message is appended instead, an error notification is raised and the
// upstream error is returned alongside that message.
func (s *Session) Send(ctx context.Context, query string) (Message, error) {
	if strings.TrimSpace(query) == "" {
		return Message{}, ErrEmptyQuery
	}
	s.appendMessage(RoleUser, query, false)

	answer, err := s.asker.Ask(ctx, query)
	if err != nil {
		s.metrics.IncChatRequest("error")
		s.log.Warn().Err(err).Msg("chat request failed")
		s.notifier.Notify(notify.LevelError, "Connection Error", fmt.Sprintf("Failed to connect to RAN AI: %v", err))
		msg := s.appendMessage(RoleAI, fmt.Sprintf("Connection Error: unable to reach the RAN AI service.\n\nError details: %v", err), true)
		return msg, err
	}

	if answer.Fallback {
		s.metrics.IncChatRequest("fallback")
	} else {
		s.metrics.IncChatRequest("ok")
	}
	return s.appendMessage(RoleAI, answer.Text, false), nil
}

func (s *Session) appendMessage(role Role, content string, isErr bool) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.nowFn().UTC(),
		Error:     isErr,
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Clear drops the transcript.
func (s *Session) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}
