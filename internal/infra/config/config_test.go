package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				Spotify: SpotifyConfig{
					ClientID:     "test-client-id",
					ClientSecret: "test-client-secret",
					RefreshToken: "test-refresh-token",
					Market:       "US",
				},
				Host: HostConfig{
					Token: "test-host-token",
				},
			},
			wantErr: false,
		},
		{
			name: "missing spotify client id",
			config: Config{
				Spotify: SpotifyConfig{
					ClientSecret: "test-client-secret",
					RefreshToken: "test-refresh-token",
				},
				Host: HostConfig{
					Token: "test-host-token",
				},
			},
			wantErr: true,
			errMsg:  "ClientID",
		},
		{
			name: "missing host token",
			config: Config{
				Spotify: SpotifyConfig{
					ClientID:     "test-client-id",
					ClientSecret: "test-client-secret",
					RefreshToken: "test-refresh-token",
				},
			},
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name: "invalid market length",
			config: Config{
				Spotify: SpotifyConfig{
					ClientID:     "test-client-id",
					ClientSecret: "test-client-secret",
					RefreshToken: "test-refresh-token",
					Market:       "JAPAN",
				},
				Host: HostConfig{
					Token: "test-host-token",
				},
			},
			wantErr: true,
			errMsg:  "Market",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9000"
host:
  token: file-token
playback:
  tick_interval_ms: 1500
filters:
  duration_limit_filter:
    enabled: true
    settings:
      min_minutes: 1
      max_minutes: 8
spotify:
  client_id: cid
  client_secret: csecret
  refresh_token: rtoken
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "file-token", cfg.Host.Token)
	assert.Equal(t, 1500, cfg.Playback.TickIntervalMs)
	// Defaults fill the fields the file omits.
	assert.Equal(t, 2000, cfg.Playback.GracePeriodMs)
	assert.Equal(t, "US", cfg.Spotify.Market)
	assert.Equal(t, "vibeq.db", cfg.Storage.Path)
	assert.True(t, cfg.IsFilterEnabled("duration_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("explicit_track_filter"))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
host:
  token: file-token
spotify:
  client_id: cid
  client_secret: csecret
  refresh_token: rtoken
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("HOST_TOKEN", "env-token")
	t.Setenv("SPOTIFY_CLIENT_ID", "env-cid")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Host.Token)
	assert.Equal(t, "env-cid", cfg.Spotify.ClientID)
	assert.Equal(t, "csecret", cfg.Spotify.ClientSecret)
}

func TestConfig_GetMessage(t *testing.T) {
	var cfg Config
	require.NoError(t, defaults.Set(&cfg))

	assert.Equal(t, cfg.Messages.DuplicateTrack, cfg.GetMessage("duplicate_track"))
	assert.Equal(t, cfg.Messages.Success, cfg.GetMessage("success"))
	assert.Equal(t, cfg.Messages.DefaultError, cfg.GetMessage("no_such_code"))
}
