package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/manash/roomdesign/pkg/models"
)

var ErrInvalidProvider = errors.New("invalid provider")

type Config struct {
	Provider   string `env:"ROOMDESIGN_PROVIDER" envDefault:"gemini"`
	ImageModel string `env:"ROOMDESIGN_IMAGE_MODEL"`
	ChatModel  string `env:"ROOMDESIGN_CHAT_MODEL"`
	BaseURL    string `env:"ROOMDESIGN_BASE_URL"`
	TimeoutSec int    `env:"ROOMDESIGN_TIMEOUT_SEC" envDefault:"120"`
	DataDir    string `env:"ROOMDESIGN_DATA_DIR"`
	LogLevel   string `env:"ROOMDESIGN_LOG_LEVEL" envDefault:"info"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	APIKey       string `env:"API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
}

// Load reads the environment, after loading the given .env files when they
// exist. Variables already set in the environment win over .env values.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".roomdesign")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.ProviderType().IsValid() {
		return fmt.Errorf("%w: %q (valid: %v)", ErrInvalidProvider, c.Provider, models.ValidProviders())
	}
	if c.TimeoutSec <= 0 {
		return fmt.Errorf("ROOMDESIGN_TIMEOUT_SEC must be positive, got %d", c.TimeoutSec)
	}
	return nil
}

func (c *Config) ProviderType() models.ProviderType {
	return models.ProviderType(c.Provider)
}

// EnvKey returns the environment API key for a provider, with the name of
// the variable it came from. Gemini falls back to API_KEY.
func (c *Config) EnvKey(p models.ProviderType) (name, value string) {
	switch p {
	case models.ProviderGemini:
		if c.GeminiAPIKey != "" {
			return "GEMINI_API_KEY", c.GeminiAPIKey
		}
		return "API_KEY", c.APIKey
	case models.ProviderOpenAI:
		return "OPENAI_API_KEY", c.OpenAIAPIKey
	}
	return "", ""
}

// EnvKeyNames lists the variables consulted for a provider, in order.
func EnvKeyNames(p models.ProviderType) []string {
	switch p {
	case models.ProviderGemini:
		return []string{"GEMINI_API_KEY", "API_KEY"}
	case models.ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	}
	return nil
}

// Models returns the image and chat model for the configured provider,
// falling back to the registry defaults.
func (c *Config) Models(registry *models.ModelRegistry) (image, chat string, err error) {
	image, chat = c.ImageModel, c.ChatModel
	if image == "" {
		image, _ = registry.Default(c.ProviderType(), models.KindImage)
	}
	if chat == "" {
		chat, _ = registry.Default(c.ProviderType(), models.KindChat)
	}

	for _, name := range []string{image, chat} {
		if _, err := registry.Lookup(name); err != nil {
			return "", "", err
		}
	}
	return image, chat, nil
}

func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}
