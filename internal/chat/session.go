// Package chat keeps the in-memory conversation with the agent.
package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"edger/internal/service"
)

// ErrBusy is returned when a message is sent while another is in flight.
var ErrBusy = errors.New("a message is already being sent")

// Session is one conversation. Nothing is persisted.
type Session struct {
	backend service.Backend
	now     func() time.Time

	// OnTaskSuggest receives the tasks of create_task replies.
	OnTaskSuggest func(tasks []service.TaskRequest)

	mu       sync.Mutex
	messages []service.ChatMessage
	sending  bool
	lastErr  error
}

// NewSession creates an empty conversation with the agent behind backend.
func NewSession(backend service.Backend) *Session {
	return &Session{backend: backend, now: time.Now}
}

// Send posts text to the agent and records both sides of the exchange.
// Whitespace-only text is ignored and yields a nil message and nil error.
// On failure the user message is kept and the error is recorded.
func (s *Session) Send(ctx context.Context, text string) (*service.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.sending = true
	s.lastErr = nil
	s.messages = append(s.messages, service.ChatMessage{
		ID:        uuid.NewString(),
		Role:      service.RoleUser,
		Content:   text,
		Timestamp: s.now(),
	})
	s.mu.Unlock()

	resp, err := s.backend.Chat(ctx, text)

	s.mu.Lock()
	s.sending = false
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}
	reply := service.ChatMessage{
		ID:            uuid.NewString(),
		Role:          service.RoleAssistant,
		Content:       resp.Text,
		Timestamp:     s.now(),
		AgentResponse: &resp,
	}
	s.messages = append(s.messages, reply)
	hook := s.OnTaskSuggest
	s.mu.Unlock()

	if resp.Type == service.ActionCreateTask && len(resp.Tasks) > 0 && hook != nil {
		hook(resp.Tasks)
	}
	return &reply, nil
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []service.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Err returns the error of the last failed send.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Clear empties the conversation and the recorded error.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.lastErr = nil
}
