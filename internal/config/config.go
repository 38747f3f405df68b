package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
	"pagefind/internal/search"
)

// FileName is the configuration file inside the pagefind config directory.
const FileName = "config.toml"

// Config represents the application configuration
type Config struct {
	Version   int               `toml:"version"`
	Search    SearchSettings    `toml:"search"`
	Highlight HighlightSettings `toml:"highlight"`
	UI        UISettings        `toml:"ui"`
	Overlay   OverlaySettings   `toml:"overlay"`
	Scan      ScanSettings      `toml:"scan"`
	Log       LogSettings       `toml:"log"`
}

// SearchSettings configures the search core
type SearchSettings struct {
	DebounceMS      int    `toml:"debounce_ms"`
	TestIDAttribute string `toml:"test_id_attribute"`
	Language        string `toml:"language"`
	AriaTemplates   bool   `toml:"aria_templates"`
}

// HighlightSettings holds overlay colors. An empty current match color
// falls back to the single match color.
type HighlightSettings struct {
	SingleMatchColor  string `toml:"single_match_color"`
	CurrentMatchColor string `toml:"current_match_color"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	ShowTooltips     bool `toml:"show_tooltips"`
	OutlineTextWidth int  `toml:"outline_text_width"`
}

// OverlaySettings configures the browser overlay bridge. An empty address
// disables it.
type OverlaySettings struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// ScanSettings configures directory scans. Include holds doublestar
// patterns matched against paths relative to the scanned root. A non-empty
// Database receives every scan's results.
type ScanSettings struct {
	Include           []string `toml:"include"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Database          string   `toml:"database"`
}

// LogSettings configures the log file
type LogSettings struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
}

// NewConfigService creates a config service for the default location
func NewConfigService() ConfigService {
	return &configService{filePath: DefaultPath()}
}

// NewConfigServiceWithBus creates a config service with event bus support.
// An empty path selects the default location.
func NewConfigServiceWithBus(bus eventbus.EventBus, path string) ConfigService {
	if path == "" {
		path = DefaultPath()
	}
	return &configService{bus: bus, filePath: path}
}

// DefaultPath returns $XDG_CONFIG_HOME/pagefind/config.toml, or the
// platform equivalent.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "pagefind", FileName)
}

// Path returns the file Load and Save use
func (cs *configService) Path() string {
	return cs.filePath
}

// Load loads the configuration from file, or the defaults when there is
// no file yet
func (cs *configService) Load() (*Config, error) {
	cfg, err := cs.LoadFromPath(cs.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	if cs.bus != nil {
		cs.bus.Publish(domain.ConfigLoadedEvent{Path: cs.filePath})
	}
	return cfg, nil
}

// Save saves the configuration to file
func (cs *configService) Save(config *Config) error {
	if err := cs.SaveToPath(config, cs.filePath); err != nil {
		return err
	}

	if cs.bus != nil {
		cs.bus.Publish(domain.ConfigSavedEvent{Path: cs.filePath})
	}
	return nil
}

// LoadFromPath loads configuration from a specific path. Keys missing from
// the file keep their default values.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchSettings{
			DebounceMS:      int(search.DefaultDebounce / time.Millisecond),
			TestIDAttribute: search.DefaultTestIDAttribute,
			Language:        search.DefaultLanguage,
			AriaTemplates:   true,
		},
		Highlight: HighlightSettings{
			SingleMatchColor: search.DefaultSingleMatchColor,
		},
		UI: UISettings{
			ShowTooltips:     true,
			OutlineTextWidth: 60,
		},
		Overlay: OverlaySettings{
			AllowedOrigins: []string{"*"},
		},
		Scan: ScanSettings{
			RequestsPerSecond: 2,
		},
		Log: LogSettings{
			File:  "pagefind.log",
			Level: "info",
		},
	}
}

// Validate rejects values the search core cannot run with
func (c *Config) Validate() error {
	if c.Search.DebounceMS < 0 {
		return fmt.Errorf("search.debounce_ms must not be negative, got %d", c.Search.DebounceMS)
	}
	switch c.Search.Language {
	case "javascript", "python":
	default:
		return fmt.Errorf("search.language must be javascript or python, got %q", c.Search.Language)
	}
	if c.Scan.RequestsPerSecond < 0 {
		return fmt.Errorf("scan.requests_per_second must not be negative, got %g", c.Scan.RequestsPerSecond)
	}
	for _, pattern := range c.Scan.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("scan.include has an invalid pattern %q", pattern)
		}
	}
	if c.UI.OutlineTextWidth < 0 {
		return fmt.Errorf("ui.outline_text_width must not be negative, got %d", c.UI.OutlineTextWidth)
	}
	return nil
}

// SearchConfig is the read-only snapshot handed to the search controller
func (c *Config) SearchConfig() search.Config {
	return search.Config{
		Debounce:          time.Duration(c.Search.DebounceMS) * time.Millisecond,
		TestIDAttribute:   c.Search.TestIDAttribute,
		Language:          c.Search.Language,
		SingleMatchColor:  c.Highlight.SingleMatchColor,
		CurrentMatchColor: c.Highlight.CurrentMatchColor,
		ShowTooltips:      c.UI.ShowTooltips,
	}
}
