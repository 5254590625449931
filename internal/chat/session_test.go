package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manash/roomdesign/internal/ledger"
	"github.com/manash/roomdesign/pkg/models"
)

type fakeResponder struct {
	mu       sync.Mutex
	replies  []string
	err      error
	block    chan struct{}
	started  chan struct{}
	received [][]models.ChatMessage
	messages []string
}

func (r *fakeResponder) Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	r.mu.Lock()
	r.received = append(r.received, history)
	r.messages = append(r.messages, message)
	n := len(r.messages)
	r.mu.Unlock()

	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	if r.err != nil {
		return "", r.err
	}
	return r.replies[(n-1)%len(r.replies)], nil
}

func TestSend_AppendsTurns(t *testing.T) {
	responder := &fakeResponder{replies: []string{"Try a jute rug.", "Warm oak works."}}
	s := NewSession(responder, nil)

	require.NoError(t, s.Send(context.Background(), "what rug?"))
	require.NoError(t, s.Send(context.Background(), "  what table?  "))

	turns := s.Turns()
	require.Len(t, turns, 4)
	wantRoles := []models.ChatRole{models.RoleUser, models.RoleAssistant, models.RoleUser, models.RoleAssistant}
	wantText := []string{"what rug?", "Try a jute rug.", "what table?", "Warm oak works."}
	for i := range turns {
		assert.Equal(t, wantRoles[i], turns[i].Role)
		assert.Equal(t, wantText[i], turns[i].Text)
		assert.NotEmpty(t, turns[i].ID)
		assert.False(t, turns[i].Timestamp.IsZero())
	}
	assert.False(t, s.Loading())

	require.Len(t, responder.received, 2)
	assert.Empty(t, responder.received[0])
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Text: "what rug?"},
		{Role: models.RoleAssistant, Text: "Try a jute rug."},
	}, responder.received[1], "history holds prior turns only")
	assert.Equal(t, "what table?", responder.messages[1])
}

func TestSend_EmptyMessage(t *testing.T) {
	s := NewSession(&fakeResponder{replies: []string{"x"}}, nil)
	assert.ErrorIs(t, s.Send(context.Background(), "   "), ErrEmptyMessage)
	assert.Empty(t, s.Turns())
}

func TestSend_FailureIsSilent(t *testing.T) {
	s := NewSession(&fakeResponder{err: errors.New("offline")}, nil)

	err := s.Send(context.Background(), "hello")
	require.NoError(t, err)

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.False(t, s.Loading())
}

type panickyResponder struct{ panics int }

func (r *panickyResponder) Reply(_ context.Context, _ []models.ChatMessage, _ string) (string, error) {
	if r.panics > 0 {
		r.panics--
		panic("responder crashed")
	}
	return "Still here.", nil
}

func TestSend_PanicClearsLoading(t *testing.T) {
	s := NewSession(&panickyResponder{panics: 1}, nil)

	assert.Panics(t, func() { _ = s.Send(context.Background(), "hello") })
	assert.False(t, s.Loading())

	require.NoError(t, s.Send(context.Background(), "hello again"))
	turns := s.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "Still here.", turns[2].Text)
}

func TestSend_UserTurnVisibleWhileLoading(t *testing.T) {
	responder := &fakeResponder{
		replies: []string{"ok"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(responder, nil)

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "hi") }()
	<-responder.started

	assert.True(t, s.Loading())
	require.Len(t, s.Turns(), 1)
	assert.ErrorIs(t, s.Send(context.Background(), "again"), ErrBusy)

	close(responder.block)
	require.NoError(t, <-done)
	assert.Len(t, s.Turns(), 2)
	assert.False(t, s.Loading())
}

func TestClear_DropsInFlightReply(t *testing.T) {
	responder := &fakeResponder{
		replies: []string{"late"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(responder, nil)

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "hi") }()
	<-responder.started

	s.Clear()
	assert.Empty(t, s.Turns())
	assert.False(t, s.Loading())

	close(responder.block)
	require.NoError(t, <-done)
	assert.Empty(t, s.Turns())
}

func TestTurns_ReturnsCopy(t *testing.T) {
	s := NewSession(&fakeResponder{replies: []string{"ok"}}, nil)
	require.NoError(t, s.Send(context.Background(), "hi"))

	turns := s.Turns()
	turns[0].Text = "mutated"
	assert.Equal(t, "hi", s.Turns()[0].Text)
}

type fakeChatter struct {
	reply string
	err   error
	req   *models.ChatRequest
}

func (c *fakeChatter) Name() models.ProviderType { return models.ProviderGemini }

func (c *fakeChatter) Chat(ctx context.Context, req *models.ChatRequest) (string, error) {
	c.req = req
	return c.reply, c.err
}

type fakeRecorder struct{ entries []*ledger.Entry }

func (r *fakeRecorder) Record(ctx context.Context, e *ledger.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestAssistant_Reply(t *testing.T) {
	tests := []struct {
		name       string
		chatter    *fakeChatter
		want       string
		wantStatus ledger.Status
	}{
		{"success", &fakeChatter{reply: "Go with linen."}, "Go with linen.", ""},
		{"failure", &fakeChatter{err: errors.New("503")}, ApologyReply, ledger.StatusFailed},
		{"empty", &fakeChatter{}, EmptyReply, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			a := &Assistant{Chatter: tt.chatter, Model: "chat-model", Recorder: rec}
			history := []models.ChatMessage{{Role: models.RoleUser, Text: "earlier"}}

			got, err := a.Reply(context.Background(), history, "sofa?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			require.NotNil(t, tt.chatter.req)
			assert.Equal(t, SystemInstruction, tt.chatter.req.SystemInstruction)
			assert.Equal(t, "chat-model", tt.chatter.req.Model)
			assert.Equal(t, history, tt.chatter.req.History)
			assert.Equal(t, "sofa?", tt.chatter.req.Message)

			require.Len(t, rec.entries, 1)
			assert.Equal(t, ledger.OpChat, rec.entries[0].Operation)
			assert.Equal(t, tt.wantStatus, rec.entries[0].Status)
		})
	}
}

func TestSession_WithAssistant_AppendsApology(t *testing.T) {
	s := NewSession(&Assistant{Chatter: &fakeChatter{err: errors.New("down")}, Model: "m"}, nil)
	require.NoError(t, s.Send(context.Background(), "help"))

	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, ApologyReply, turns[1].Text)
}
