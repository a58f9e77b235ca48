package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_relay/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("FEED_HOST", "feeds.example.com")

	path := writeConfig(t, `
database:
  driver: sqlite
jobs:
  - id: cls
    adapter: cls
    category: finance
    url: http://${FEED_HOST}/cls
    interval: 1m
    timeout: 2s
    notify_room: finance
  - id: sina
    adapter: sina
    url: http://${FEED_HOST}/sina
    timeout: 5m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "news_relay.db", cfg.Database.Path)
	assert.Contains(t, cfg.Database.DSN(), "file:news_relay.db")
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)

	require.Len(t, cfg.Jobs, 2)
	cls := cfg.Jobs[0]
	assert.Equal(t, "http://feeds.example.com/cls", cls.URL)
	assert.Equal(t, time.Minute, cls.Interval)
	assert.Equal(t, MinFetchTimeout, cls.Timeout)
	assert.Equal(t, "data", cls.ListField)
	require.NotNil(t, cls.Room())
	assert.Equal(t, domain.RoomFinance, *cls.Room())

	sina := cfg.Jobs[1]
	assert.Equal(t, MaxFetchTimeout, sina.Timeout)
	assert.Equal(t, 5*time.Minute, sina.Interval)
	assert.Equal(t, "news", sina.Category)
	assert.Nil(t, sina.Room())

	job, ok := cfg.Job("sina")
	assert.True(t, ok)
	assert.Equal(t, "sina", job.Name)
}

func TestLoad_PostgresDSN(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db
  user: relay
  password: secret
  dbname: relay
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=relay password=secret dbname=relay sslmode=disable", cfg.Database.DSN())
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown room",
			body: "jobs:\n  - id: a\n    adapter: cls\n    url: http://x/a\n    notify_room: weather\n",
			want: "unknown room",
		},
		{
			name: "duplicate id",
			body: "jobs:\n  - id: a\n    adapter: cls\n    url: http://x/a\n  - id: a\n    adapter: sina\n    url: http://x/b\n",
			want: "duplicate id",
		},
		{
			name: "unknown adapter",
			body: "jobs:\n  - id: a\n    adapter: soap\n    url: http://x/a\n",
			want: "unknown adapter",
		},
		{
			name: "mapped without body field",
			body: "jobs:\n  - id: a\n    url: http://x/a\n",
			want: "fields.body",
		},
		{
			name: "bad driver",
			body: "database:\n  driver: oracle\n",
			want: "unsupported driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestServerConfig_Location(t *testing.T) {
	assert.Equal(t, time.UTC, ServerConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "UTC", ServerConfig{Timezone: "UTC"}.Location().String())
}
