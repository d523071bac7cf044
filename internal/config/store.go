package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mekedron/coordextract/internal/domain"
	"github.com/mekedron/coordextract/internal/service/output"
)

const (
	defaultDirName  = ".coordextract"
	defaultFileName = "config.json"
	envConfigPath   = "COORDEXTRACT_CONFIG_PATH"

	maxPrecision = 5
)

var (
	// ErrConfigNotFound is returned when config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrInvalidConfig is returned when config payload is malformed.
	ErrInvalidConfig = errors.New("config file is invalid")
)

var (
	// LogLevels lists accepted diagnostics levels.
	LogLevels = []string{"debug", "info", "warn", "error"}
	// LogFormats lists accepted diagnostics encodings.
	LogFormats = []string{"text", "json"}
)

// Store loads and writes local defaults.
type Store struct {
	path string
}

// NewStore creates a store using env overrides or defaults.
func NewStore() (*Store, error) {
	if cfg := strings.TrimSpace(os.Getenv(envConfigPath)); cfg != "" {
		return &Store{path: cfg}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &Store{path: filepath.Join(home, defaultDirName, defaultFileName)}, nil
}

// Path returns current config path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates configuration.
func (s *Store) Load(_ context.Context) (domain.Config, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Config{}, ErrConfigNotFound
		}
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg domain.Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := Validate(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Save writes a configuration payload.
func (s *Store) Save(_ context.Context, cfg domain.Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports ErrInvalidConfig for out-of-range values.
func Validate(cfg domain.Config) error {
	if cfg.Indent != nil && *cfg.Indent < 0 {
		return fmt.Errorf("%w: indent must not be negative", ErrInvalidConfig)
	}
	if cfg.Precision != nil && (*cfg.Precision < 0 || *cfg.Precision > maxPrecision) {
		return fmt.Errorf("%w: precision must be between 0 and %d", ErrInvalidConfig, maxPrecision)
	}
	if cfg.Jobs < 0 {
		return fmt.Errorf("%w: jobs must not be negative", ErrInvalidConfig)
	}
	if _, err := output.ParseFormat(cfg.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !oneOf(cfg.LogLevel, LogLevels) {
		return fmt.Errorf("%w: unsupported log level %q", ErrInvalidConfig, cfg.LogLevel)
	}
	if !oneOf(cfg.LogFormat, LogFormats) {
		return fmt.Errorf("%w: unsupported log format %q", ErrInvalidConfig, cfg.LogFormat)
	}
	return nil
}

// oneOf treats an empty value as unset.
func oneOf(value string, allowed []string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "" || slices.Contains(allowed, value)
}
