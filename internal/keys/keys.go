package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

const appName = "roomdesign"

var (
	ErrKeyNotFound = errors.New("no key stored")
	ErrNoAPIKey    = errors.New("API key required")
)

// Store keeps one API key per provider in keys.json under the user's
// config directory.
type Store struct {
	configDir string
	now       func() time.Time
}

type KeyEntry struct {
	Key     string    `json:"key"`
	SavedAt time.Time `json:"saved_at"`
}

type Keys map[string]KeyEntry

func NewStore() (*Store, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(configDir), nil
}

func NewStoreAt(dir string) *Store {
	return &Store{configDir: dir, now: time.Now}
}

// ConfigDir returns the platform config directory for roomdesign.
// ROOMDESIGN_CONFIG_DIR overrides it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ROOMDESIGN_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, appName), nil
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, appName), nil
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (Keys, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(Keys), nil
		}
		return nil, err
	}

	var keys Keys
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	if keys == nil {
		keys = make(Keys)
	}
	return keys, nil
}

func (s *Store) save(keys Keys) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// owner read/write only
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

func (s *Store) Set(provider, key string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	keys[provider] = KeyEntry{Key: key, SavedAt: s.now().UTC()}
	return s.save(keys)
}

// Get returns the stored key, or "" when none is stored.
func (s *Store) Get(provider string) (string, error) {
	entry, err := s.Entry(provider)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return entry.Key, nil
}

func (s *Store) Entry(provider string) (KeyEntry, error) {
	keys, err := s.load()
	if err != nil {
		return KeyEntry{}, err
	}

	entry, ok := keys[provider]
	if !ok {
		return KeyEntry{}, fmt.Errorf("%w for %s", ErrKeyNotFound, provider)
	}
	return entry, nil
}

func (s *Store) Delete(provider string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := keys[provider]; !ok {
		return fmt.Errorf("%w for %s", ErrKeyNotFound, provider)
	}

	delete(keys, provider)
	return s.save(keys)
}

// List returns the providers with a stored key, sorted.
func (s *Store) List() ([]string, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(keys))
	for provider := range keys {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers, nil
}

func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// EnvKey is an API key read from the environment.
type EnvKey struct {
	Name  string
	Value string
}

// Resolve picks the API key for provider: the explicit key first, then the
// stored key, then the first non-empty environment key. The second return
// value describes where the key came from.
func (s *Store) Resolve(explicit, provider string, env ...EnvKey) (string, string, error) {
	if explicit != "" {
		return explicit, "command-line flag", nil
	}

	if stored, err := s.Get(provider); err == nil && stored != "" {
		return stored, fmt.Sprintf("stored key (%s)", s.Path()), nil
	}

	names := make([]string, 0, len(env))
	for _, e := range env {
		if e.Value != "" {
			return e.Value, fmt.Sprintf("environment variable (%s)", e.Name), nil
		}
		names = append(names, e.Name)
	}

	return "", "", fmt.Errorf("%w for %s: run '%s keys set %s' or set %s",
		ErrNoAPIKey, provider, appName, provider, strings.Join(names, " or "))
}
