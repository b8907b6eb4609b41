package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// HTTPTimeoutSeconds bounds every Bot API request; 0 -> default
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" envconfig:"TELEGRAM_HTTP_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// DatabaseConfig holds Postgres connection settings. It is only used when a
// listings source or favorites backend is set to postgres.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// ListingsConfig selects where the listing catalogue is read from at startup.
type ListingsConfig struct {
	Source           string   `yaml:"source" envconfig:"LISTINGS_SOURCE"`
	Path             string   `yaml:"path" envconfig:"LISTINGS_PATH"`
	DefaultLocations []string `yaml:"default_locations"`
}

// FavoritesConfig selects the favorites backend.
type FavoritesConfig struct {
	Backend string `yaml:"backend" envconfig:"FAVORITES_BACKEND"`
	Path    string `yaml:"path" envconfig:"FAVORITES_PATH"`
}

// BudgetConfig is one budget button. Max accepts an integer or "inf".
type BudgetConfig struct {
	Label string `yaml:"label"`
	Min   int    `yaml:"min"`
	Max   string `yaml:"max"`
}

// MaxValue parses Max; ok is false for the "inf" sentinel.
func (b BudgetConfig) MaxValue() (int, bool, error) {
	raw := strings.ToLower(strings.TrimSpace(b.Max))
	if raw == BudgetNoLimit {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("budget %q: invalid max %q", b.Label, b.Max)
	}
	return v, true, nil
}

// FunnelConfig holds the bedroom and budget vocabularies. Empty lists keep
// the built-in vocabulary.
type FunnelConfig struct {
	Bedrooms []string       `yaml:"bedrooms"`
	Budgets  []BudgetConfig `yaml:"budgets"`
}

// SessionConfig controls in-memory session retention.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"SESSION_IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// BackendCSV stores data in a local CSV file.
	BackendCSV = "csv"
	// BackendPostgres stores data in the configured database.
	BackendPostgres = "postgres"

	// BudgetNoLimit is the open upper bound of a budget.
	BudgetNoLimit = "inf"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": inline button presses
// - "message": text messages and commands
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Listings  ListingsConfig  `yaml:"listings"`
	Favorites FavoritesConfig `yaml:"favorites"`
	Funnel    FunnelConfig    `yaml:"funnel"`
	Session   SessionConfig   `yaml:"session"`
}

// UsesPostgres reports whether any component needs the database.
func (c *Config) UsesPostgres() bool {
	return c.Listings.Source == BackendPostgres || c.Favorites.Backend == BackendPostgres
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.http_timeout_seconds must be >= 0")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if err := normalizeRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	if err := normalizeListings(&cfg.Listings); err != nil {
		return err
	}
	if err := normalizeFavorites(&cfg.Favorites); err != nil {
		return err
	}
	if err := normalizeFunnel(&cfg.Funnel); err != nil {
		return err
	}
	if err := normalizeSession(&cfg.Session); err != nil {
		return err
	}
	if cfg.UsesPostgres() {
		normalizeDatabase(&cfg.Database)
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres backend")
		}
	}
	return nil
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	if rl.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	if rl.Burst <= 0 {
		rl.Burst = 1
	}
	if rl.ExcludeUpdates == nil {
		rl.ExcludeUpdates = []string{UpdateCallback}
	}
	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range rl.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		rl.ExcludeUpdates[i] = key
	}
	return nil
}

// DefaultLocations is the location vocabulary used when the catalogue is empty.
var DefaultLocations = []string{"Kiambu Town", "Thika", "Ruiru", "Juja", "Limuru", "Githunguri"}

func normalizeListings(l *ListingsConfig) error {
	l.Source = strings.ToLower(strings.TrimSpace(l.Source))
	if l.Source == "" {
		l.Source = BackendCSV
	}
	switch l.Source {
	case BackendCSV:
		if strings.TrimSpace(l.Path) == "" {
			l.Path = "listings.csv"
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("invalid listings.source %q; allowed: csv, postgres", l.Source)
	}
	if len(l.DefaultLocations) == 0 {
		l.DefaultLocations = append([]string(nil), DefaultLocations...)
	}
	return nil
}

func normalizeFavorites(f *FavoritesConfig) error {
	f.Backend = strings.ToLower(strings.TrimSpace(f.Backend))
	if f.Backend == "" {
		f.Backend = BackendCSV
	}
	switch f.Backend {
	case BackendCSV:
		if strings.TrimSpace(f.Path) == "" {
			f.Path = "favorites.csv"
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("invalid favorites.backend %q; allowed: csv, postgres", f.Backend)
	}
	return nil
}

func normalizeFunnel(f *FunnelConfig) error {
	for i, b := range f.Bedrooms {
		b = strings.TrimSpace(b)
		if b == "" || strings.Contains(b, "|") {
			return fmt.Errorf("invalid funnel.bedrooms entry %q", f.Bedrooms[i])
		}
		f.Bedrooms[i] = b
	}
	for i := range f.Budgets {
		b := &f.Budgets[i]
		b.Label = strings.TrimSpace(b.Label)
		if b.Label == "" {
			return fmt.Errorf("funnel.budgets[%d]: label is required", i)
		}
		if b.Min < 0 {
			return fmt.Errorf("budget %q: min must be >= 0", b.Label)
		}
		max, bounded, err := b.MaxValue()
		if err != nil {
			return err
		}
		if bounded && max < b.Min {
			return fmt.Errorf("budget %q: max must be >= min", b.Label)
		}
		if !bounded {
			b.Max = BudgetNoLimit
		} else {
			b.Max = strconv.Itoa(max)
		}
	}
	return nil
}

func normalizeSession(s *SessionConfig) error {
	if s.IdleTTL < 0 {
		return fmt.Errorf("session.idle_ttl must be >= 0")
	}
	if s.IdleTTL > 0 && s.SweepInterval <= 0 {
		s.SweepInterval = s.IdleTTL / 2
		if s.SweepInterval < time.Second {
			s.SweepInterval = time.Second
		}
	}
	return nil
}

func normalizeDatabase(db *DatabaseConfig) {
	if db.Port == "" {
		db.Port = "5432"
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.MaxConnections <= 0 {
		db.MaxConnections = 5
	}
}
