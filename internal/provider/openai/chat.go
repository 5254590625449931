package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/manash/roomdesign/internal/provider"
	"github.com/manash/roomdesign/pkg/models"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

func (p *Provider) Chat(ctx context.Context, req *models.ChatRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	cap, ok := p.registry.Get(req.Model)
	if !ok || cap.Provider != models.ProviderOpenAI {
		return "", fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}
	if !cap.SupportsChat() {
		return "", fmt.Errorf("%w: %s", models.ErrChatNotSupported, req.Model)
	}

	jsonData, err := json.Marshal(buildChatRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	status, body, err := p.do(httpReq, len(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrChatFailed, err)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("%w: %s", provider.ErrChatFailed, apiResp.Error.Message)
	}

	if status != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", provider.ErrChatFailed, status)
	}

	if len(apiResp.Choices) == 0 {
		return "", nil
	}
	return apiResp.Choices[0].Message.Content, nil
}

func buildChatRequest(req *models.ChatRequest) *chatRequest {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, msg := range req.History {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Message})

	return &chatRequest{
		Model:    req.Model,
		Messages: messages,
	}
}
