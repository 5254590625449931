// Package chat keeps the design-assistant conversation: an append-only log
// of turns and the call that produces the next assistant reply.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/manash/roomdesign/pkg/models"
)

var (
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrBusy         = errors.New("still waiting for the previous reply")
)

type Turn struct {
	ID        string
	Role      models.ChatRole
	Text      string
	Timestamp time.Time
}

// Responder produces the assistant's reply to message given the turns
// before it.
type Responder interface {
	Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error)
}

type Session struct {
	mu        sync.Mutex
	responder Responder
	logger    *zap.Logger
	turns     []Turn
	loading   bool
	epoch     uint64
	now       func() time.Time
}

func NewSession(responder Responder, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		responder: responder,
		logger:    logger.Named("chat"),
		now:       time.Now,
	}
}

// Send appends the user's turn, asks the responder for a reply and appends
// it. A responder failure is logged and leaves only the user turn behind.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	history := make([]models.ChatMessage, len(s.turns))
	for i, turn := range s.turns {
		history[i] = models.ChatMessage{Role: turn.Role, Text: turn.Text}
	}
	s.turns = append(s.turns, s.newTurn(models.RoleUser, text))
	s.loading = true
	epoch := s.epoch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.epoch == epoch {
			s.loading = false
		}
		s.mu.Unlock()
	}()

	reply, err := s.responder.Reply(ctx, history, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug("dropping reply for cleared conversation")
		return nil
	}

	if err != nil {
		s.logger.Error("chat reply failed", zap.Error(err), zap.Int("turns", len(s.turns)))
		return nil
	}
	s.turns = append(s.turns, s.newTurn(models.RoleAssistant, reply))
	return nil
}

func (s *Session) newTurn(role models.ChatRole, text string) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
	}
}

// Turns returns a copy of the conversation in order.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Clear drops every turn. A reply still in flight is discarded.
func (s *Session) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.loading = false
	s.epoch++
	s.mu.Unlock()
}
