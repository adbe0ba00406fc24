// Package config loads the server configuration.
//
// LAYERING:
// Values are resolved in three passes, each overriding the one before:
//  1. An optional TOML file (CONFIG_FILE, default "gthanks.toml" if present)
//  2. A .env file in the working directory, loaded into the process env
//  3. Real environment variables
//
// Defaults fill whatever is still empty. The result is validated once, so the
// rest of the program can trust a *Config it is handed.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full server configuration. The toml tags double as the
// documentation of the file format.
type Config struct {
	Port   int    `toml:"port"`
	DBPath string `toml:"db_path"`

	JWTSecret     string `toml:"jwt_secret"`
	SecureCookies bool   `toml:"secure_cookies"`

	GitHub GitHubConfig `toml:"github"`

	// AdminLogins are GitHub logins that get the site admin flag on login.
	AdminLogins []string `toml:"admin_logins"`
	CORSOrigins []string `toml:"cors_origins"`

	RateLimit RateLimitConfig `toml:"rate_limit"`

	CronSecret      string   `toml:"cron_secret"`
	AuditRetention  Duration `toml:"audit_retention"`
	CleanupInterval Duration `toml:"cleanup_interval"`

	// MailMode is "log" (default) or "capture".
	MailMode string `toml:"mail_mode"`

	Log LogConfig `toml:"log"`
}

// Duration lets the TOML file spell durations as strings such as "720h".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type GitHubConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
}

// RateLimitConfig configures the per-key token bucket. When RedisURL is set
// the counters live in Redis and are shared by every instance.
type RateLimitConfig struct {
	RPS      float64 `toml:"rps"`
	Burst    int     `toml:"burst"`
	RedisURL string  `toml:"redis_url"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
	// File, when set, also writes logs to a size-rotated file.
	File string `toml:"file"`
}

// Load builds a Config from the TOML file, .env and the environment.
func Load() (*Config, error) {
	// A missing .env is normal in production; anything else is worth failing on.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := &Config{}

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = "gthanks.toml"
	}
	if err := loadFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setList := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = splitList(v)
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	setInt("PORT", &cfg.Port)
	setString("DB_PATH", &cfg.DBPath)
	setString("JWT_SECRET", &cfg.JWTSecret)
	setBool("SECURE_COOKIES", &cfg.SecureCookies)
	setString("GITHUB_CLIENT_ID", &cfg.GitHub.ClientID)
	setString("GITHUB_CLIENT_SECRET", &cfg.GitHub.ClientSecret)
	setString("GITHUB_CALLBACK_URL", &cfg.GitHub.CallbackURL)
	setList("ADMIN_LOGINS", &cfg.AdminLogins)
	setList("CORS_ORIGINS", &cfg.CORSOrigins)
	setFloat("RATE_LIMIT_RPS", &cfg.RateLimit.RPS)
	setInt("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	setString("REDIS_URL", &cfg.RateLimit.RedisURL)
	setString("CRON_SECRET", &cfg.CronSecret)
	setDuration("AUDIT_RETENTION", &cfg.AuditRetention)
	setDuration("CLEANUP_INTERVAL", &cfg.CleanupInterval)
	setString("MAIL_MODE", &cfg.MailMode)
	setString("LOG_FILE", &cfg.Log.File)

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("config: LOG_LEVEL: %w", err))
		}
	}

	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/gthanks.db"
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	if cfg.RateLimit.RPS == 0 {
		cfg.RateLimit.RPS = 1
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.AuditRetention == 0 {
		cfg.AuditRetention = Duration(90 * 24 * time.Hour)
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.MailMode == "" {
		cfg.MailMode = "log"
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	if c.RateLimit.RPS < 0 {
		errs = append(errs, fmt.Errorf("config: rate_limit.rps must not be negative"))
	}
	if c.RateLimit.Burst < 0 {
		errs = append(errs, fmt.Errorf("config: rate_limit.burst must not be negative"))
	}
	if c.AuditRetention < 0 {
		errs = append(errs, fmt.Errorf("config: audit_retention must not be negative"))
	}
	if c.CleanupInterval < 0 {
		errs = append(errs, fmt.Errorf("config: cleanup_interval must not be negative"))
	}
	switch c.MailMode {
	case "log", "capture":
	default:
		errs = append(errs, fmt.Errorf("config: unknown mail_mode %q", c.MailMode))
	}
	return errors.Join(errs...)
}

// IsAdminLogin reports whether login is listed in AdminLogins (case-insensitive).
func (c *Config) IsAdminLogin(login string) bool {
	for _, l := range c.AdminLogins {
		if strings.EqualFold(l, login) {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
