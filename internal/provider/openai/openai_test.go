package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/manash/roomdesign/internal/provider"
	"github.com/manash/roomdesign/pkg/models"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake png body")

func testImage() models.Image {
	return models.NewImage(pngBytes)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New(&provider.Config{APIKey: "test-key", BaseURL: server.URL}, models.DefaultRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	registry := models.DefaultRegistry()

	tests := []struct {
		name    string
		cfg     *provider.Config
		wantErr error
	}{
		{
			name:    "valid config",
			cfg:     &provider.Config{APIKey: "test-key"},
			wantErr: nil,
		},
		{
			name:    "empty API key",
			cfg:     &provider.Config{APIKey: ""},
			wantErr: provider.ErrAPIKeyRequired,
		},
		{
			name:    "custom base URL",
			cfg:     &provider.Config{APIKey: "test-key", BaseURL: "https://custom.api.com/"},
			wantErr: nil,
		},
		{
			name:    "custom timeout",
			cfg:     &provider.Config{APIKey: "test-key", TimeoutSec: 60},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, registry)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v, want nil", err)
			}
			if strings.HasSuffix(p.baseURL, "/") {
				t.Errorf("baseURL = %q, want no trailing slash", p.baseURL)
			}
			if p.costCalc == nil {
				t.Error("New() should initialize cost calculator")
			}
		})
	}
}

func TestNew_Timeout(t *testing.T) {
	p, _ := New(&provider.Config{APIKey: "k", TimeoutSec: 7}, models.DefaultRegistry())
	if p.httpClient.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", p.httpClient.Timeout)
	}

	p, _ = New(&provider.Config{APIKey: "k"}, models.DefaultRegistry())
	if p.httpClient.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", p.httpClient.Timeout, defaultTimeout)
	}
}

func TestProvider_Name(t *testing.T) {
	p, _ := New(&provider.Config{APIKey: "test"}, models.DefaultRegistry())
	if p.Name() != models.ProviderOpenAI {
		t.Errorf("Name() = %v, want %v", p.Name(), models.ProviderOpenAI)
	}
}

func TestProvider_SupportsModel(t *testing.T) {
	p, _ := New(&provider.Config{APIKey: "test"}, models.DefaultRegistry())

	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-image-1", true},
		{"gpt-4o-mini", true},
		{"gemini-2.5-flash-image", false},
		{"unknown", false},
	}

	for _, tt := range tests {
		if got := p.SupportsModel(tt.model); got != tt.want {
			t.Errorf("SupportsModel(%s) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestProvider_SupportsEdit(t *testing.T) {
	p, _ := New(&provider.Config{APIKey: "test"}, models.DefaultRegistry())

	if !p.SupportsEdit("gpt-image-1") {
		t.Error("SupportsEdit(gpt-image-1) = false, want true")
	}
	if p.SupportsEdit("gpt-4o-mini") {
		t.Error("SupportsEdit(gpt-4o-mini) = true, want false")
	}
}

func TestProvider_ListModels(t *testing.T) {
	p, _ := New(&provider.Config{APIKey: "test"}, models.DefaultRegistry())
	got := p.ListModels()
	want := []string{"gpt-4o-mini", "gpt-image-1"}
	if len(got) != len(want) {
		t.Fatalf("ListModels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListModels()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestProvider_Edit_Success(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/images/edits" {
			t.Errorf("path = %s, want /images/edits", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("wrong authorization header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if got := r.FormValue("prompt"); got != "make it blue" {
			t.Errorf("prompt = %q", got)
		}
		if got := r.FormValue("model"); got != "gpt-image-1" {
			t.Errorf("model = %q", got)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("FormFile(image) error = %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != string(pngBytes) {
			t.Error("image bytes mismatch")
		}
		if header.Header.Get("Content-Type") != "image/png" {
			t.Errorf("image content type = %s", header.Header.Get("Content-Type"))
		}

		json.NewEncoder(w).Encode(editResponse{
			Data: []imageData{{B64JSON: base64.StdEncoding.EncodeToString(pngBytes)}},
		})
	})

	req := &models.EditRequest{Model: "gpt-image-1", Prompt: "make it blue", Image: testImage()}
	resp, err := p.Edit(context.Background(), req)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if string(resp.Image.Data) != string(pngBytes) {
		t.Error("Edit() image data mismatch")
	}
	if resp.Image.MimeType != "image/png" {
		t.Errorf("MimeType = %s, want image/png", resp.Image.MimeType)
	}
	if resp.Cost == nil || !floatEquals(resp.Cost.PerImage, 0.042) {
		t.Errorf("Cost = %+v, want 0.042 per image", resp.Cost)
	}
}

func TestProvider_Edit_DownloadsURL(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/out.png" {
			w.Write(pngBytes)
			return
		}
		json.NewEncoder(w).Encode(editResponse{
			Data: []imageData{{URL: serverURL + "/files/out.png"}},
		})
	}))
	defer server.Close()
	serverURL = server.URL

	p, _ := New(&provider.Config{APIKey: "k", BaseURL: server.URL}, models.DefaultRegistry())
	resp, err := p.Edit(context.Background(), &models.EditRequest{Model: "gpt-image-1", Prompt: "x", Image: testImage()})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if string(resp.Image.Data) != string(pngBytes) {
		t.Error("downloaded image mismatch")
	}
}

func TestProvider_Edit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		req     *models.EditRequest
		wantErr error
	}{
		{
			name:    "missing image",
			req:     &models.EditRequest{Model: "gpt-image-1", Prompt: "x"},
			wantErr: models.ErrNoImageData,
		},
		{
			name:    "chat model",
			req:     &models.EditRequest{Model: "gpt-4o-mini", Prompt: "x", Image: testImage()},
			wantErr: models.ErrEditNotSupported,
		},
		{
			name: "api error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"bad image","type":"invalid_request_error"}}`))
			},
			req:     &models.EditRequest{Model: "gpt-image-1", Prompt: "x", Image: testImage()},
			wantErr: provider.ErrEditFailed,
		},
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{}`))
			},
			req:     &models.EditRequest{Model: "gpt-image-1", Prompt: "x", Image: testImage()},
			wantErr: provider.ErrEditFailed,
		},
		{
			name: "no data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":[]}`))
			},
			req:     &models.EditRequest{Model: "gpt-image-1", Prompt: "x", Image: testImage()},
			wantErr: provider.ErrNoImageReturned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := tt.handler
			if handler == nil {
				handler = func(w http.ResponseWriter, r *http.Request) {
					t.Error("unexpected request")
				}
			}
			p := newTestProvider(t, handler)
			_, err := p.Edit(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Edit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProvider_Edit_InvalidBase64(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"b64_json":"!!!"}]}`))
	})
	_, err := p.Edit(context.Background(), &models.EditRequest{Model: "gpt-image-1", Prompt: "x", Image: testImage()})
	if err == nil {
		t.Fatal("Edit() error = nil, want decode error")
	}
}

func TestProvider_Edit_ContextCanceled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Edit(ctx, &models.EditRequest{Model: "gpt-image-1", Prompt: "x", Image: testImage()})
	if !errors.Is(err, provider.ErrEditFailed) {
		t.Errorf("Edit() error = %v, want ErrEditFailed", err)
	}
}

func TestProvider_Chat(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		wantRoles := []string{"system", "user", "assistant", "user"}
		if len(req.Messages) != len(wantRoles) {
			t.Fatalf("messages = %d, want %d", len(req.Messages), len(wantRoles))
		}
		for i, role := range wantRoles {
			if req.Messages[i].Role != role {
				t.Errorf("messages[%d].Role = %s, want %s", i, req.Messages[i].Role, role)
			}
		}
		if req.Messages[3].Content != "what rug?" {
			t.Errorf("last message = %q", req.Messages[3].Content)
		}
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"A jute rug."}}]}`))
	})

	reply, err := p.Chat(context.Background(), &models.ChatRequest{
		Model:             "gpt-4o-mini",
		SystemInstruction: "be nice",
		History: []models.ChatMessage{
			{Role: models.RoleUser, Text: "hi"},
			{Role: models.RoleAssistant, Text: "hello"},
		},
		Message: "what rug?",
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "A jute rug." {
		t.Errorf("Chat() = %q", reply)
	}
}

func TestProvider_Chat_Errors(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	if _, err := p.Chat(context.Background(), &models.ChatRequest{Model: "gpt-4o-mini", Message: "hi"}); !errors.Is(err, provider.ErrChatFailed) {
		t.Errorf("Chat() error = %v, want ErrChatFailed", err)
	}
	if _, err := p.Chat(context.Background(), &models.ChatRequest{Model: "gpt-image-1", Message: "hi"}); !errors.Is(err, models.ErrChatNotSupported) {
		t.Errorf("Chat() error = %v, want ErrChatNotSupported", err)
	}
	if _, err := p.Chat(context.Background(), &models.ChatRequest{Model: "gemini-3-pro-preview", Message: "hi"}); !errors.Is(err, provider.ErrModelNotSupported) {
		t.Errorf("Chat() error = %v, want ErrModelNotSupported", err)
	}
	if _, err := p.Chat(context.Background(), &models.ChatRequest{Model: "gpt-4o-mini"}); !errors.Is(err, models.ErrEmptyMessage) {
		t.Errorf("Chat() error = %v, want ErrEmptyMessage", err)
	}
}

func TestProvider_Chat_NoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})
	reply, err := p.Chat(context.Background(), &models.ChatRequest{Model: "gpt-4o-mini", Message: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "" {
		t.Errorf("Chat() = %q, want empty", reply)
	}
}

func TestProvider_DownloadImage_Error(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := p.DownloadImage(context.Background(), p.baseURL+"/missing.png"); err == nil {
		t.Error("DownloadImage() error = nil, want error")
	}
}

func floatEquals(a, b float64) bool {
	const epsilon = 0.0001
	return (a-b) < epsilon && (b-a) < epsilon
}
