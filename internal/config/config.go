package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the full runtime configuration for the polycycle services.
type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	Postgres struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"postgres"`

	Auth struct {
		JWTSecret  string        `koanf:"jwt_secret"`
		Issuer     string        `koanf:"issuer"`
		SessionTTL time.Duration `koanf:"session_ttl"`
		AdminEmail string        `koanf:"admin_email"`
	} `koanf:"auth"`

	Search struct {
		MeiliHost   string `koanf:"meili_host"`
		MeiliAPIKey string `koanf:"meili_api_key"`
		MeiliIndex  string `koanf:"meili_index"`
	} `koanf:"search"`

	Mailer struct {
		WebhookURL  string        `koanf:"webhook_url"`
		ContactAddr string        `koanf:"contact_addr"`
		Timeout     time.Duration `koanf:"timeout"`
	} `koanf:"mailer"`

	Telemetry struct {
		OTLPEndpoint string `koanf:"otlp_endpoint"`
	} `koanf:"telemetry"`
}

// Load reads base.yaml from pathDir, overlays an optional per-environment
// yaml, then POLYCYCLE_-prefixed environment variables (nested keys use __,
// e.g. POLYCYCLE_POSTGRES__DSN).
func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// Optional overlay; missing file is fine for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	if err := k.Load(env.Provider("POLYCYCLE_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "POLYCYCLE_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret required")
	}
	return nil
}
