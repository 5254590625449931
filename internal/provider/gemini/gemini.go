package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/manash/roomdesign/internal/cost"
	"github.com/manash/roomdesign/internal/provider"
	"github.com/manash/roomdesign/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 120 * time.Second
)

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type apiRequest struct {
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type apiResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

// Provider talks to the Gemini generateContent REST API. Image edits send
// the image as an inline part followed by the instruction text.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	registry   *models.ModelRegistry
	calculator *cost.Calculator
	logger     *zap.Logger
}

func New(cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		registry:   registry,
		calculator: cost.NewCalculator(registry),
		logger:     cfg.Log().Named("gemini"),
	}, nil
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderGemini
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderGemini
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderGemini)
}

func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}
	if cap, _ := p.registry.Get(req.Model); !cap.SupportsEdit() {
		return nil, fmt.Errorf("%w: %s", models.ErrEditNotSupported, req.Model)
	}

	mimeType := req.Image.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	apiReq := &apiRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: mimeType, Data: req.Image.Base64()}},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	apiResp, err := p.generateContent(ctx, req.Model, apiReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrEditFailed, err)
	}

	return p.buildResponse(req.Model, apiResp)
}

func (p *Provider) Chat(ctx context.Context, req *models.ChatRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if !p.SupportsModel(req.Model) {
		return "", fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}
	if cap, _ := p.registry.Get(req.Model); !cap.SupportsChat() {
		return "", fmt.Errorf("%w: %s", models.ErrChatNotSupported, req.Model)
	}

	contents := make([]content, 0, len(req.History)+1)
	for _, msg := range req.History {
		contents = append(contents, content{
			Role:  roleFor(msg.Role),
			Parts: []part{{Text: msg.Text}},
		})
	}
	contents = append(contents, content{
		Role:  "user",
		Parts: []part{{Text: req.Message}},
	})

	apiReq := &apiRequest{Contents: contents}
	if req.SystemInstruction != "" {
		apiReq.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}

	apiResp, err := p.generateContent(ctx, req.Model, apiReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrChatFailed, err)
	}

	if len(apiResp.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, pt := range apiResp.Candidates[0].Content.Parts {
		sb.WriteString(pt.Text)
	}
	return sb.String(), nil
}

// roleFor maps conversation roles onto Gemini's "user" and "model".
func roleFor(role models.ChatRole) string {
	if role == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func (p *Provider) generateContent(ctx context.Context, model string, apiReq *apiRequest) (*apiResponse, error) {
	jsonData, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	p.logger.Debug("request",
		zap.String("url", url),
		zap.Any("headers", provider.RedactedHeaders(httpReq.Header)),
		zap.Int("body_bytes", len(jsonData)))

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	p.logger.Debug("response",
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%s (status %d)", apiResp.Error.Message, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return &apiResp, nil
}

func (p *Provider) buildResponse(model string, apiResp *apiResponse) (*models.Response, error) {
	response := &models.Response{}

	if len(apiResp.Candidates) > 0 {
		var text strings.Builder
		for _, pt := range apiResp.Candidates[0].Content.Parts {
			if pt.InlineData != nil && pt.InlineData.Data != "" && response.Image.IsEmpty() {
				decoded, err := base64.StdEncoding.DecodeString(pt.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode image: %w", err)
				}
				mimeType := pt.InlineData.MimeType
				if mimeType == "" {
					mimeType = http.DetectContentType(decoded)
				}
				response.Image = models.Image{Data: decoded, MimeType: mimeType}
				continue
			}
			text.WriteString(pt.Text)
		}
		response.Text = text.String()
	}

	if response.Image.IsEmpty() {
		return nil, provider.ErrNoImageReturned
	}

	response.Cost = p.calculator.Calculate(model, 1)
	return response, nil
}
