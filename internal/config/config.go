// Package config loads service configuration from an optional YAML file,
// environment variables and a .env file, in increasing order of precedence
// for the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/routeboard/routeboard/internal/route/transportapi"
)

// ErrInvalid is returned when configuration cannot be parsed or fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full service configuration.
type Config struct {
	Env       string          `yaml:"env" validate:"required"`
	LogLevel  string          `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Routes    RoutesConfig    `yaml:"routes"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               string        `yaml:"port" validate:"required,numeric"`
	ReadTimeout        time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins        []string      `yaml:"cors_origins" validate:"dive,required"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" validate:"gte=1"`
}

// UpstreamConfig configures the transit data upstream.
type UpstreamConfig struct {
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	AppID      string        `yaml:"app_id"`
	AppKey     string        `yaml:"app_key"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=1s,lte=10s"`
	MaxRetries uint64        `yaml:"max_retries" validate:"lte=5"` // 0 disables retries
}

// RoutesConfig configures route aggregation.
type RoutesConfig struct {
	Lat          float64       `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon          float64       `yaml:"lon" validate:"gte=-180,lte=180"`
	Stations     []string      `yaml:"stations" validate:"min=1,dive,len=3,alpha"`
	MaxPerMode   int           `yaml:"max_per_mode" validate:"gte=1,lte=50"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gte=1s,lte=60s"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:      "development",
		LogLevel: "info",
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    30 * time.Second,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 60,
		},
		Upstream: UpstreamConfig{
			BaseURL:    transportapi.DefaultBaseURL,
			Timeout:    8 * time.Second,
			MaxRetries: 2,
		},
		Routes: RoutesConfig{
			Lat:          51.5074,
			Lon:          -0.1278,
			Stations:     append([]string(nil), transportapi.DefaultStations...),
			MaxPerMode:   10,
			FetchTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
	}
}

// Load reads .env (if present), the YAML file named by ROUTEBOARD_CONFIG (if
// set), then environment overrides, and validates the result.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return LoadFile(getEnvOrDefault("ROUTEBOARD_CONFIG", ""))
}

// LoadFile is Load without the .env step. An empty path skips the YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalid, path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field against its constraints. The route fetch
// budget must end before the server write deadline so a stalled upstream
// still leaves time to send the fallback list.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Routes.FetchTimeout >= c.Server.WriteTimeout {
		return fmt.Errorf("%w: routes.fetch_timeout (%s) must be shorter than server.write_timeout (%s)",
			ErrInvalid, c.Routes.FetchTimeout, c.Server.WriteTimeout)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Server.Port, "APP_PORT")
	setList(&cfg.Server.CORSOrigins, "CORS_ALLOWED_ORIGINS")
	setString(&cfg.Upstream.BaseURL, "TRANSPORTAPI_BASE_URL")
	setString(&cfg.Upstream.AppID, "TRANSPORTAPI_APP_ID")
	setString(&cfg.Upstream.AppKey, "TRANSPORTAPI_APP_KEY")
	setList(&cfg.Routes.Stations, "ROUTES_STATIONS")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	return errors.Join(
		setInt(&cfg.Server.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"),
		setDuration(&cfg.Upstream.Timeout, "UPSTREAM_TIMEOUT"),
		setUint(&cfg.Upstream.MaxRetries, "UPSTREAM_MAX_RETRIES"),
		setFloat(&cfg.Routes.Lat, "ROUTES_LAT"),
		setFloat(&cfg.Routes.Lon, "ROUTES_LON"),
		setInt(&cfg.Routes.MaxPerMode, "ROUTES_MAX_PER_MODE"),
		setDuration(&cfg.Routes.FetchTimeout, "ROUTES_FETCH_TIMEOUT"),
		setBool(&cfg.Telemetry.Enabled, "OTEL_ENABLED"),
		setFloat(&cfg.Telemetry.SampleRatio, "OTEL_SAMPLE_RATIO"),
	)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, key string) {
	*dst = getEnvOrDefault(key, *dst)
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func parseEnv[T any](dst *T, key string, parse func(string) (T, error)) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := parse(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	return parseEnv(dst, key, strconv.Atoi)
}

func setUint(dst *uint64, key string) error {
	return parseEnv(dst, key, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
}

func setFloat(dst *float64, key string) error {
	return parseEnv(dst, key, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func setDuration(dst *time.Duration, key string) error {
	return parseEnv(dst, key, time.ParseDuration)
}

func setBool(dst *bool, key string) error {
	return parseEnv(dst, key, strconv.ParseBool)
}
