package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routeboard/routeboard/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routeboard.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 8*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 51.5074, cfg.Routes.Lat)
	assert.Equal(t, -0.1278, cfg.Routes.Lon)
	assert.Len(t, cfg.Routes.Stations, 9)
	assert.Equal(t, "PAD", cfg.Routes.Stations[0])
	assert.Equal(t, 10, cfg.Routes.MaxPerMode)
	assert.Equal(t, 10*time.Second, cfg.Routes.FetchTimeout)
	assert.Less(t, cfg.Routes.FetchTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, 60, cfg.Server.RateLimitPerMinute)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFile_YAMLOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
env: staging
upstream:
  app_id: my-app
  timeout: 5s
routes:
  lat: 53.4808
  lon: -2.2426
  stations: [MAN, LDS]
`)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "my-app", cfg.Upstream.AppID)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 53.4808, cfg.Routes.Lat)
	assert.Equal(t, []string{"MAN", "LDS"}, cfg.Routes.Stations)
	assert.Equal(t, "8080", cfg.Server.Port, "unset keys keep their default")
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "upstream:\n  app_key: from-file\n")
	t.Setenv("TRANSPORTAPI_APP_KEY", "from-env")
	t.Setenv("ROUTES_STATIONS", "kgx, eus ,")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("ROUTES_LAT", "55.9533")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Upstream.AppKey)
	assert.Equal(t, []string{"kgx", "eus"}, cfg.Routes.Stations)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 55.9533, cfg.Routes.Lat)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "latitude out of range", env: map[string]string{"ROUTES_LAT": "91"}},
		{name: "longitude out of range", env: map[string]string{"ROUTES_LON": "-180.5"}},
		{name: "timeout too long", env: map[string]string{"UPSTREAM_TIMEOUT": "30s"}},
		{name: "timeout too short", env: map[string]string{"UPSTREAM_TIMEOUT": "500ms"}},
		{name: "unparseable number", env: map[string]string{"ROUTES_MAX_PER_MODE": "ten"}},
		{name: "zero cap", env: map[string]string{"ROUTES_MAX_PER_MODE": "0"}},
		{name: "bad station code", env: map[string]string{"ROUTES_STATIONS": "LONDON"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "fetch budget outlasts write timeout", env: map[string]string{"ROUTES_FETCH_TIMEOUT": "15s"}},
		{name: "fetch budget too long", yaml: "server:\n  write_timeout: 2m\nroutes:\n  fetch_timeout: 90s\n"},
		{name: "empty stations in file", yaml: "routes:\n  stations: []\n"},
		{name: "malformed file", yaml: "routes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, tt.yaml)
			}

			_, err := config.LoadFile(path)
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestLoadFile_ZeroRetriesAllowed(t *testing.T) {
	t.Setenv("UPSTREAM_MAX_RETRIES", "0")

	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	assert.Zero(t, cfg.Upstream.MaxRetries)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_UsesConfigPathFromEnv(t *testing.T) {
	t.Setenv("ROUTEBOARD_CONFIG", writeFile(t, "server:\n  port: \"9090\"\n"))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
}
