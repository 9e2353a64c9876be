package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	DatabaseURI     string
	TelegramToken   string
	DefaultTimezone string
	PollInterval    time.Duration
	DeliveryTimeout time.Duration
	DeliveryWorkers int
	SendRatePerSec  int
	StartupDelay    time.Duration
	ShutdownTimeout time.Duration
	RedisURL        string
	LogLevel        string
	LogFormat       string
	AdminIDs        []int64
}

// Load reads .env (optional), then the YAML file named by CONFIG_FILE
// (optional), then the process environment. Environment values win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	cfg := &Config{
		DatabaseURI:     src.get("DATABASE_URI", ""),
		TelegramToken:   src.get("TELEGRAM_TOKEN", ""),
		DefaultTimezone: src.get("DEFAULT_TIMEZONE", "Europe/Moscow"),
		RedisURL:        src.get("REDIS_URL", ""),
		LogLevel:        src.get("LOG_LEVEL", "info"),
		LogFormat:       src.get("LOG_FORMAT", "console"),
	}

	var errs []error
	cfg.PollInterval = src.duration("POLL_INTERVAL", 30*time.Second, &errs)
	cfg.DeliveryTimeout = src.duration("DELIVERY_TIMEOUT", 10*time.Second, &errs)
	cfg.StartupDelay = src.duration("STARTUP_DELAY", 2*time.Second, &errs)
	cfg.ShutdownTimeout = src.duration("SHUTDOWN_TIMEOUT", 15*time.Second, &errs)
	cfg.DeliveryWorkers = src.integer("DELIVERY_WORKERS", 4, &errs)
	cfg.SendRatePerSec = src.integer("SEND_RATE_PER_SEC", 25, &errs)

	ids, err := parseIDs(src.get("ADMIN_IDS", ""))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.AdminIDs = ids

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings and out-of-range values.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("DATABASE_URI is required"))
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_TIMEZONE: %w", err))
	}
	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", c.PollInterval))
	}
	if c.DeliveryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("DELIVERY_TIMEOUT must be positive, got %s", c.DeliveryTimeout))
	}
	if c.DeliveryWorkers < 1 {
		errs = append(errs, fmt.Errorf("DELIVERY_WORKERS must be at least 1, got %d", c.DeliveryWorkers))
	}
	if c.SendRatePerSec < 1 {
		errs = append(errs, fmt.Errorf("SEND_RATE_PER_SEC must be at least 1, got %d", c.SendRatePerSec))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Location returns DEFAULT_TIMEZONE, or UTC when it does not load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether userID may use the admin commands.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := s.file[strings.ToLower(key)]; value != "" {
		return value
	}
	return defaultValue
}

func (s source) duration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func (s source) integer(key string, defaultValue int, errs *[]error) int {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

// readFile loads a flat YAML mapping whose keys are the lower-cased
// environment variable names, e.g. "poll_interval: 30s".
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		if list, ok := v.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			out[strings.ToLower(k)] = strings.Join(parts, ",")
			continue
		}
		out[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS: %q is not a user id", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
