package models

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	ErrEmptyPrompt       = errors.New("prompt cannot be empty")
	ErrNoImageData       = errors.New("image data is required for editing")
	ErrEmptyMessage      = errors.New("chat message cannot be empty")
	ErrEditNotSupported  = errors.New("image editing not supported by model")
	ErrChatNotSupported  = errors.New("chat not supported by model")
	ErrUnknownModel      = errors.New("unknown model")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

func ValidProviders() []ProviderType {
	return []ProviderType{ProviderGemini, ProviderOpenAI}
}

func (p ProviderType) IsValid() bool {
	return slices.Contains(ValidProviders(), p)
}

// EditRequest asks a provider to transform Image according to Prompt.
// Style generation and free-text edits both travel as an EditRequest;
// they differ only in how the prompt is phrased.
type EditRequest struct {
	Image  Image
	Prompt string
	Model  string
}

func NewEditRequest(image Image, prompt string) *EditRequest {
	return &EditRequest{
		Image:  image,
		Prompt: prompt,
	}
}

func (r *EditRequest) Validate() error {
	if len(r.Image.Data) == 0 {
		return ErrNoImageData
	}
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

type Response struct {
	Image Image
	// Text is any commentary the model returned next to the image.
	Text string
	Cost *CostInfo
}

type CostInfo struct {
	PerImage float64
	Total    float64
	Currency string
}

type ChatRequest struct {
	Model             string
	SystemInstruction string
	History           []ChatMessage
	Message           string
}

func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return ErrEmptyMessage
	}
	return nil
}

type ModelKind string

const (
	KindImage ModelKind = "image"
	KindChat  ModelKind = "chat"
)

type ModelCapabilities struct {
	Name          string
	Provider      ProviderType
	Kind          ModelKind
	PricePerImage float64
	Description   string
}

func (c *ModelCapabilities) SupportsEdit() bool {
	return c.Kind == KindImage
}

func (c *ModelCapabilities) SupportsChat() bool {
	return c.Kind == KindChat
}

type ModelRegistry struct {
	models map[string]*ModelCapabilities
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]*ModelCapabilities),
	}
}

func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

// Lookup is Get with an error suitable for returning to the user.
func (r *ModelRegistry) Lookup(name string) (*ModelCapabilities, error) {
	cap, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownModel, name, r.List())
	}
	return cap, nil
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Default returns the first registered model of the given kind for a provider.
func (r *ModelRegistry) Default(provider ProviderType, kind ModelKind) (string, bool) {
	for _, name := range r.ListByProvider(provider) {
		if r.models[name].Kind == kind {
			return name, true
		}
	}
	return "", false
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	r.Register(&ModelCapabilities{
		Name:          "gemini-2.5-flash-image",
		Provider:      ProviderGemini,
		Kind:          KindImage,
		PricePerImage: 0.039,
		Description:   "restyle and edit room photos",
	})

	r.Register(&ModelCapabilities{
		Name:        "gemini-3-pro-preview",
		Provider:    ProviderGemini,
		Kind:        KindChat,
		Description: "design assistant chat",
	})

	r.Register(&ModelCapabilities{
		Name:          "gpt-image-1",
		Provider:      ProviderOpenAI,
		Kind:          KindImage,
		PricePerImage: 0.042,
		Description:   "restyle and edit room photos",
	})

	r.Register(&ModelCapabilities{
		Name:        "gpt-4o-mini",
		Provider:    ProviderOpenAI,
		Kind:        KindChat,
		Description: "design assistant chat",
	})

	return r
}
