package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the sync library settings, normally loaded from
// the client profile's config.toml.
type Config struct {
	// APIBaseURL is the chat REST API root, e.g. "https://api.example.com".
	APIBaseURL string `toml:"api_base_url"`
	// PushURL is the websocket push channel endpoint.
	PushURL string `toml:"push_url"`
	// DataDir holds the persisted client state shared across tabs.
	DataDir string `toml:"data_dir"`

	HTTPTimeout  duration `toml:"http_timeout"`
	TypingExpiry duration `toml:"typing_expiry"`
}

// duration lets TOML carry values like "10s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a config with sane defaults rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		DataDir:      dataDir,
		HTTPTimeout:  duration{10 * time.Second},
		TypingExpiry: duration{1200 * time.Millisecond},
	}
}

// Timeout returns the HTTP timeout, falling back to 10s when unset.
func (c *Config) Timeout() time.Duration {
	if c.HTTPTimeout.Duration <= 0 {
		return 10 * time.Second
	}
	return c.HTTPTimeout.Duration
}

// TypingTTL returns the typing indicator expiry, falling back to 1.2s.
func (c *Config) TypingTTL() time.Duration {
	if c.TypingExpiry.Duration <= 0 {
		return 1200 * time.Millisecond
	}
	return c.TypingExpiry.Duration
}

// StatePath returns the sqlite path for persisted client state.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// LogPath returns the library log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "sync.log")
}

// Load reads config from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
