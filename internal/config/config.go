package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from FAMWELL_* environment variables.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DBPath       string `env:"DB_PATH" envDefault:"famwell.db"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"text"`
	BaseURL      string `env:"BASE_URL"`
	SecureCookie bool   `env:"SECURE_COOKIE" envDefault:"false"`

	// Hour of day (server local time) at which mood check-in reminders go out.
	ReminderHour int `env:"REMINDER_HOUR" envDefault:"19"`

	Push      PushConfig      `envPrefix:"PUSH_"`
	Email     EmailConfig     `envPrefix:"POSTMARK_"`
	Export    ExportConfig    `envPrefix:"EXPORT_S3_"`
	Federated FederatedConfig `envPrefix:"FEDERATED_"`
}

type PushConfig struct {
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	Subscriber      string `env:"SUBSCRIBER" envDefault:"mailto:noreply@famwell.app"`
}

type EmailConfig struct {
	Token     string `env:"TOKEN"`
	FromEmail string `env:"FROM_EMAIL"`
}

type ExportConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
}

// FederatedConfig configures ID token verification for third-party sign-in.
// PublicKeyPEM holds the provider's RSA signing key; HMACSecret is accepted
// for self-issued tokens in development.
type FederatedConfig struct {
	Issuer       string `env:"ISSUER"`
	Audience     string `env:"AUDIENCE"`
	PublicKeyPEM string `env:"PUBLIC_KEY_PEM"`
	HMACSecret   string `env:"HMAC_SECRET"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "FAMWELL_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ReminderHour < 0 || cfg.ReminderHour > 23 {
		return Config{}, fmt.Errorf("reminder hour %d out of range 0-23", cfg.ReminderHour)
	}
	return cfg, nil
}

// PushEnabled reports whether both VAPID keys are set.
func (c Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}

// FederatedEnabled reports whether a verification key is configured.
func (c Config) FederatedEnabled() bool {
	return c.Federated.PublicKeyPEM != "" || c.Federated.HMACSecret != ""
}
