package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultDBPath     = "./dev.db"
	defaultPort       = "8080"
	defaultEnv        = "development"
	defaultSessionTTL = 2 * time.Hour
	defaultTimeout    = 10 * time.Second
)

// Config holds application configuration. Values come from markup.yaml,
// then MARKUP_* environment variables (a local .env file is loaded first).
type Config struct {
	Env           string `mapstructure:"env"`
	Port          string `mapstructure:"port"`
	DBPath        string `mapstructure:"db_path"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
	SessionSecret string `mapstructure:"session_secret"`

	Session SessionConfig `mapstructure:"session"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Notify  NotifyConfig  `mapstructure:"notify"`

	// Warnings lists settings that are missing but not fatal.
	Warnings []string `mapstructure:"-"`
}

// SessionConfig selects where wizard sessions live.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotifyConfig configures the lead notification channels. Empty values
// disable the matching channel.
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	EmailFrom  string        `mapstructure:"email_from"`
	EmailTo    string        `mapstructure:"email_to"`
	SMSTo      string        `mapstructure:"sms_to"`
	AWSRegion  string        `mapstructure:"aws_region"`
	LeadLog    bool          `mapstructure:"lead_log"`
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev"
}

// AWSEnabled reports whether any AWS-backed channel is configured.
func (n NotifyConfig) AWSEnabled() bool {
	return (n.EmailTo != "" && n.EmailFrom != "") || n.SMSTo != ""
}

// Load reads configuration from the working directory.
func Load() (Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads .env and markup.yaml from dir, then applies environment
// overrides.
func LoadFrom(dir string) (Config, error) {
	// Best-effort: production injects real environment variables.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("markup")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("MARKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]interface{}{
		"env":                defaultEnv,
		"port":               defaultPort,
		"db_path":            defaultDBPath,
		"log_level":          "info",
		"log_format":         "console",
		"admin_email":        "",
		"admin_password":     "",
		"session_secret":     "",
		"session.backend":    "memory",
		"session.ttl":        defaultSessionTTL,
		"redis.addr":         "localhost:6379",
		"redis.password":     "",
		"redis.db":           0,
		"notify.webhook_url": "",
		"notify.timeout":     defaultTimeout,
		"notify.email_from":  "",
		"notify.email_to":    "",
		"notify.sms_to":      "",
		"notify.aws_region":  "us-east-1",
		"notify.lead_log":    true,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read markup.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	if cfg.AdminEmail == "" {
		cfg.Warnings = append(cfg.Warnings, "MARKUP_ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.Warnings = append(cfg.Warnings, "MARKUP_ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "MARKUP_SESSION_SECRET is not set")
	}

	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", cfg.Session.Backend)
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if cfg.Notify.Timeout <= 0 {
		return errors.New("notify.timeout must be positive")
	}
	if cfg.Notify.WebhookURL != "" && !strings.HasPrefix(cfg.Notify.WebhookURL, "http://") && !strings.HasPrefix(cfg.Notify.WebhookURL, "https://") {
		return errors.New("notify.webhook_url must be an http(s) URL")
	}
	return nil
}
