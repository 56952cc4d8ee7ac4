package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/oauth2/fitbit"
)

const (
	EnvPrefix        = "FITDASH_"
	ConfigPathEnvVar = "CONFIG_PATH"
)

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Fitbit  FitbitConfig  `koanf:"fitbit"`
	Cache   CacheConfig   `koanf:"cache"`
	Session SessionConfig `koanf:"session"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr is the listen address of the dashboard.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type FitbitConfig struct {
	// Optional: prefill the credential form.
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	RedirectURL    string        `koanf:"redirect_url" validate:"required,url"`
	AuthURL        string        `koanf:"auth_url" validate:"required,url"`
	TokenURL       string        `koanf:"token_url" validate:"required,url"`
	APIBaseURL     string        `koanf:"api_base_url" validate:"required,url"`
	Scopes         []string      `koanf:"scopes" validate:"min=1,dive,required"`
	OpenBrowser    bool          `koanf:"open_browser"`
	AuthTimeout    time.Duration `koanf:"auth_timeout" validate:"gte=0"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

type CacheConfig struct {
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	CookieName    string        `koanf:"cookie_name" validate:"required"`
	SecureCookie  bool          `koanf:"secure_cookie"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
	Dir    string `koanf:"dir" validate:"required"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Fitbit: FitbitConfig{
			RedirectURL:    "http://localhost:8081/",
			AuthURL:        fitbit.Endpoint.AuthURL,
			TokenURL:       fitbit.Endpoint.TokenURL,
			APIBaseURL:     "https://api.fitbit.com",
			Scopes:         []string{"activity", "heartrate", "profile", "sleep"},
			OpenBrowser:    true,
			RequestTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Session: SessionConfig{
			TTL:           24 * time.Hour,
			SweepInterval: 10 * time.Minute,
			CookieName:    "fitdash_session",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Dir:    "logs",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration with precedence env > file > defaults. A .env file
// in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// FITBIT_ID and FITBIT_SECRET predate the prefixed names.
	if err := k.Load(env.Provider("FITBIT_", ".", legacyEnvTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps FITDASH_FITBIT_CLIENT_ID to fitbit.client_id.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}

func legacyEnvTransform(key string) string {
	switch key {
	case "FITBIT_ID":
		return "fitbit.client_id"
	case "FITBIT_SECRET":
		return "fitbit.client_secret"
	}
	return ""
}

var sliceConfigPaths = []string{
	"fitbit.scopes",
}

// processSliceFields splits comma or space separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' '
		})
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
