package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/manash/roomdesign/internal/provider"
	"github.com/manash/roomdesign/pkg/models"
)

type editResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Error   *apiError   `json:"error,omitempty"`
}

type imageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

func (p *Provider) SupportsEdit(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.SupportsEdit() && cap.Provider == models.ProviderOpenAI
}

func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !p.SupportsEdit(req.Model) {
		return nil, fmt.Errorf("%w: %s", models.ErrEditNotSupported, req.Model)
	}

	body, contentType, err := buildEditForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/images/edits", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	status, bodyBytes, err := p.do(httpReq, body.Len())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrEditFailed, err)
	}

	var apiResp editResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrEditFailed, apiResp.Error.Message)
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", provider.ErrEditFailed, status)
	}

	return p.buildResponse(ctx, req.Model, apiResp)
}

func buildEditForm(req *models.EditRequest) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	mimeType := req.Image.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="room.%s"`, req.Image.Extension()))
	header.Set("Content-Type", mimeType)
	imagePart, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := imagePart.Write(req.Image.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}

	if err := writer.WriteField("prompt", req.Prompt); err != nil {
		return nil, "", fmt.Errorf("failed to write prompt: %w", err)
	}

	if err := writer.WriteField("model", req.Model); err != nil {
		return nil, "", fmt.Errorf("failed to write model: %w", err)
	}

	if err := writer.WriteField("n", "1"); err != nil {
		return nil, "", fmt.Errorf("failed to write count: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

// buildResponse takes the first returned image, downloading it when the
// API answered with a URL instead of inline data.
func (p *Provider) buildResponse(ctx context.Context, model string, apiResp editResponse) (*models.Response, error) {
	if len(apiResp.Data) == 0 {
		return nil, provider.ErrNoImageReturned
	}

	data := apiResp.Data[0]
	var raw []byte
	switch {
	case data.B64JSON != "":
		decoded, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		raw = decoded
	case data.URL != "":
		downloaded, err := p.DownloadImage(ctx, data.URL)
		if err != nil {
			return nil, err
		}
		raw = downloaded
	default:
		return nil, provider.ErrNoImageReturned
	}

	return &models.Response{
		Image: models.NewImage(raw),
		Text:  data.RevisedPrompt,
		Cost:  p.costCalc.Calculate(model, 1),
	}, nil
}
