// Package daemon wires the service together: configuration, storage,
// identity, provider adapters, gateway, and the HTTP server lifecycle.
package daemon

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full service configuration, loadable from a TOML file.
// Credentials are never stored in the file; they come from the
// environment (GOOGLE_API_KEY, STABILITY_API_KEY, REMINISCE_TOKEN_KEY)
// and overlay whatever the file carries.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Auth      AuthConfig      `toml:"auth"`
	Providers ProvidersConfig `toml:"providers"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// StorageConfig controls where the SQLite database lives.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// AuthConfig controls token minting and registration defaults.
type AuthConfig struct {
	SigningKey      string `toml:"-"` // environment only, never persisted
	TokenTTL        string `toml:"token_ttl"`
	StartingCredits int64  `toml:"starting_credits"`
}

// ProvidersConfig carries per-provider tuning. Prompt templates and the
// downsampling threshold are configuration, not literals in code.
type ProvidersConfig struct {
	Stability StabilityConfig `toml:"stability"`
	Gemini    GeminiConfig    `toml:"gemini"`
	TTS       TTSConfig       `toml:"tts"`
}

// StabilityConfig tunes the image-restyle adapter.
type StabilityConfig struct {
	APIKey         string  `toml:"-"` // environment only
	Engine         string  `toml:"engine"`
	PromptTemplate string  `toml:"prompt_template"`
	ImageStrength  float64 `toml:"image_strength"`
	CFGScale       int     `toml:"cfg_scale"`
	Steps          int     `toml:"steps"`
	MaxEdge        int     `toml:"max_edge"`
	TimeoutSec     int     `toml:"timeout_seconds"`
}

// GeminiConfig tunes the text-generation adapter.
type GeminiConfig struct {
	APIKey           string `toml:"-"` // environment only
	Model            string `toml:"model"`
	StoryPrompt      string `toml:"story_prompt"`
	SoundscapePrompt string `toml:"soundscape_prompt"`
	TimeoutSec       int    `toml:"timeout_seconds"`
}

// TTSConfig tunes speech synthesis.
type TTSConfig struct {
	Language string `toml:"language"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:          "127.0.0.1",
			Port:          8090,
			EnableMetrics: true,
		},
		Storage: StorageConfig{
			Dir: defaultDataDir(),
		},
		Auth: AuthConfig{
			TokenTTL:        "30m",
			StartingCredits: 10,
		},
		Providers: ProvidersConfig{
			Stability: StabilityConfig{
				Engine:        "stable-diffusion-v1-6",
				ImageStrength: 0.5,
				CFGScale:      7,
				Steps:         30,
				MaxEdge:       1536,
				TimeoutSec:    90,
			},
			Gemini: GeminiConfig{
				Model:      "gemini-1.5-flash",
				TimeoutSec: 60,
			},
			TTS: TTSConfig{
				Language: "en",
			},
		},
	}
}

// Load reads the TOML config at path (missing file means pure defaults)
// and overlays environment-provided credentials.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Providers.Gemini.APIKey = getEnv("GOOGLE_API_KEY", c.Providers.Gemini.APIKey)
	c.Providers.Stability.APIKey = getEnv("STABILITY_API_KEY", c.Providers.Stability.APIKey)
	c.Auth.SigningKey = getEnv("REMINISCE_TOKEN_KEY", c.Auth.SigningKey)
	if dir := os.Getenv("REMINISCE_DATA_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
}

// TokenTTL parses the configured token lifetime, falling back to 30m.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home + "/.reminisce"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
