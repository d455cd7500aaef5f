package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every variable: COMPASSHUB_ADDR, COMPASSHUB_DB_PATH, ...
const envPrefix = "COMPASSHUB"

// Authentication modes.
const (
	AuthModeDemo     = "demo"
	AuthModeAccounts = "accounts"
)

// Config is the process configuration read from the environment.
type Config struct {
	Env            string   `envconfig:"ENV" default:"development"`
	Addr           string   `envconfig:"ADDR" default:":8080"`
	DBPath         string   `envconfig:"DB_PATH" default:"compasshub.db"`
	CSRFKey        string   `envconfig:"CSRF_KEY"`
	AuthMode       string   `envconfig:"AUTH_MODE" default:"demo"`
	AdminEmail     string   `envconfig:"ADMIN_EMAIL"`
	AdminPassword  string   `envconfig:"ADMIN_PASSWORD"`
	DemoPassword   string   `envconfig:"DEMO_PASSWORD"` // accounts mode: seeds the demo users
	ResendKey      string   `envconfig:"RESEND_KEY"`
	MailFrom       string   `envconfig:"MAIL_FROM" default:"Compass Hub <noreply@communaute.fr>"`
	FollowUpNotify string   `envconfig:"FOLLOWUP_NOTIFY"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
	RateLimit      int      `envconfig:"RATE_LIMIT" default:"20"`
	SlowQueryMS    int      `envconfig:"SLOW_QUERY_MS" default:"50"`
	SlowRequestMS  int      `envconfig:"SLOW_REQUEST_MS" default:"500"`
	SeedFixtures   bool     `envconfig:"SEED_FIXTURES" default:"true"`
}

// ErrDemoInProduction is returned when production runs with the built-in demo users.
var ErrDemoInProduction = errors.New("demo authentication is not allowed in production")

// ErrUnknownAuthMode is returned for an AUTH_MODE other than demo or accounts.
var ErrUnknownAuthMode = errors.New("unknown auth mode")

// LoadConfig reads an optional .env file, then the environment.
// Variables already set in the environment win over the file.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read .env: %w", err)
		}
	} else {
		slog.Debug("config_event", "event", "dotenv_loaded")
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations envconfig cannot express.
func (c Config) Validate() error {
	switch c.AuthMode {
	case AuthModeDemo:
		if c.Production() {
			return ErrDemoInProduction
		}
	case AuthModeAccounts:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAuthMode, c.AuthMode)
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.RateLimit < 0 {
		return errors.New("RATE_LIMIT must not be negative")
	}
	return nil
}

// Production reports whether ENV is production.
func (c Config) Production() bool {
	return c.Env == "production"
}

// SlowQuery is the slow query threshold.
func (c Config) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryMS) * time.Millisecond
}

// SlowRequest is the slow request threshold.
func (c Config) SlowRequest() time.Duration {
	return time.Duration(c.SlowRequestMS) * time.Millisecond
}
