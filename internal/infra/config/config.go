// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Party    PartyConfig             `yaml:"party"`
	Host     HostConfig              `yaml:"host"`
	Playback PlaybackConfig          `yaml:"playback"`
	Storage  StorageConfig           `yaml:"storage"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr           string   `yaml:"addr" default:":8000"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// PartyConfig represents party-related configuration.
type PartyConfig struct {
	Title string `yaml:"title" default:"vibeQ"`
}

// HostConfig represents host-related configuration.
type HostConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents reconciliation loop configuration.
type PlaybackConfig struct {
	TickIntervalMs int    `yaml:"tick_interval_ms" default:"2000" validate:"gte=1000,lte=3000"`
	GracePeriodMs  int    `yaml:"grace_period_ms" default:"2000" validate:"gte=500,lte=10000"`
	DeviceID       string `yaml:"device_id"`
}

// StorageConfig represents persistence configuration.
type StorageConfig struct {
	Path string `yaml:"path" default:"vibeq.db"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success               string `yaml:"success" default:"Request received! The host will review it."`
	DefaultError          string `yaml:"default_error" default:"Sorry, that request could not be accepted."`
	TrackNotFound         string `yaml:"track_not_found" default:"That track could not be found."`
	ExplicitContent       string `yaml:"explicit_content" default:"Explicit tracks are not allowed at this party."`
	DuplicateTrack        string `yaml:"duplicate_track" default:"That track is already in the queue."`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded" default:"That track is too long or too short for the party."`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("HOST_TOKEN"); v != "" {
		c.Host.Token = v
	}
}

// GetMessage returns the user-facing message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "track_not_found":
		return c.Messages.TrackNotFound
	case "explicit_content":
		return c.Messages.ExplicitContent
	case "duplicate_track":
		return c.Messages.DuplicateTrack
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}
