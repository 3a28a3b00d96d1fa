package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"campaign-automator-api/internal/crypto"

	"github.com/joho/godotenv"
)

// Config holds everything the binary reads from the environment.
type Config struct {
	DatabaseURL   string
	Port          string
	JWTSecret     string
	RunMigrations bool

	Automation AutomationConfig
	Metrics    MetricsConfig
	NATS       NATSConfig
	Gmail      GmailConfig
}

// AutomationConfig controls the rule runner and the optional in-process scheduler.
type AutomationConfig struct {
	Interval     time.Duration // 0 = geen interne scheduler
	Concurrency  int
	RuleTimeout  time.Duration
	BatchTimeout time.Duration
	Location     *time.Location
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string
	DefaultTo    string
}

// Enabled reports whether enough credentials are present to send mail.
func (g GmailConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != "" && g.From != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          getEnv("API_PORT", "8080"),
		JWTSecret:     os.Getenv("JWT_SECRET_KEY"),
		RunMigrations: strings.EqualFold(os.Getenv("RUN_MIGRATIONS"), "true"),
		Metrics: MetricsConfig{
			Path: getEnv("METRICS_PATH", "/metrics"),
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "automation"),
		},
		Gmail: GmailConfig{
			ClientID:     os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
			RefreshToken: os.Getenv("GMAIL_REFRESH_TOKEN"),
			From:         os.Getenv("NOTIFY_EMAIL_FROM"),
			DefaultTo:    os.Getenv("NOTIFY_EMAIL_TO"),
		},
	}

	var err error
	if cfg.Metrics.Enabled, err = getBool("METRICS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.Automation.Interval, err = getDuration("AUTOMATION_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.Automation.RuleTimeout, err = getDuration("AUTOMATION_RULE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Automation.BatchTimeout, err = getDuration("AUTOMATION_BATCH_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Automation.Concurrency, err = getInt("AUTOMATION_CONCURRENCY", 1); err != nil {
		return nil, err
	}

	if sealed := os.Getenv("GMAIL_REFRESH_TOKEN_SEALED"); sealed != "" && cfg.Gmail.RefreshToken == "" {
		if cfg.Gmail.RefreshToken, err = openSecret(sealed); err != nil {
			return nil, fmt.Errorf("invalid GMAIL_REFRESH_TOKEN_SEALED: %w", err)
		}
	}

	tz := getEnv("AUTOMATION_TIMEZONE", "UTC")
	if cfg.Automation.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid AUTOMATION_TIMEZONE %q: %w", tz, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openSecret decrypts a value produced by `campaign-automator secret seal`.
func openSecret(sealed string) (string, error) {
	box, err := crypto.NewSecretBox([]byte(os.Getenv("ENCRYPTION_KEY")))
	if err != nil {
		return "", err
	}
	return box.Open(sealed)
}

func validate(cfg *Config) error {
	if cfg.Automation.Concurrency < 1 {
		return fmt.Errorf("AUTOMATION_CONCURRENCY must be greater than 0")
	}
	if cfg.Automation.Interval < 0 {
		return fmt.Errorf("AUTOMATION_INTERVAL must not be negative")
	}
	if cfg.Automation.RuleTimeout <= 0 || cfg.Automation.BatchTimeout <= 0 {
		return fmt.Errorf("automation timeouts must be positive")
	}
	if cfg.Automation.RuleTimeout > cfg.Automation.BatchTimeout {
		return fmt.Errorf("AUTOMATION_RULE_TIMEOUT must not exceed AUTOMATION_BATCH_TIMEOUT")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
