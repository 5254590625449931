package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/manash/roomdesign/internal/ledger"
	"github.com/manash/roomdesign/pkg/models"
)

const (
	SystemInstruction = "You are an expert Interior Design Consultant. Help users refine their room designs, suggest furniture, color palettes, and provide shopping advice. Be concise, helpful, and enthusiastic."

	ApologyReply = "Sorry, I'm having trouble connecting right now."
	EmptyReply   = "I couldn't generate a response."
)

// Chatter is the chat half of provider.Provider.
type Chatter interface {
	Name() models.ProviderType
	Chat(ctx context.Context, req *models.ChatRequest) (string, error)
}

// Assistant answers as the interior design consultant. Service failures
// come back as a canned apology rather than an error.
type Assistant struct {
	Chatter  Chatter
	Model    string
	Recorder ledger.Recorder
	Logger   *zap.Logger
}

func (a *Assistant) Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	reply, err := a.Chatter.Chat(ctx, &models.ChatRequest{
		Model:             a.Model,
		SystemInstruction: SystemInstruction,
		History:           history,
		Message:           message,
	})
	elapsed := time.Since(start)

	entry := &ledger.Entry{
		Operation: ledger.OpChat,
		Prompt:    message,
		Model:     a.Model,
		Provider:  string(a.Chatter.Name()),
		Duration:  elapsed,
	}
	if err != nil {
		entry.Status = ledger.StatusFailed
		entry.Error = err.Error()
	}
	if a.Recorder != nil {
		if recErr := a.Recorder.Record(context.WithoutCancel(ctx), entry); recErr != nil {
			logger.Warn("failed to record chat usage", zap.Error(recErr))
		}
	}

	if err != nil {
		logger.Error("assistant chat failed", zap.Error(err), zap.String("model", a.Model))
		return ApologyReply, nil
	}
	if reply == "" {
		return EmptyReply, nil
	}
	return reply, nil
}
