// Package daemon wires configuration, storage, the wallet and the HTTP API
// into a running process.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/app/achievement"
	"github.com/studybunny/carrot/internal/app/inactivity"
	"github.com/studybunny/carrot/internal/app/wallet"
	"github.com/studybunny/carrot/internal/domain"
)

// ─── Config ─────────────────────────────────────────────────────────────────

// Config is the on-disk configuration at ~/.carrot/config.toml.
type Config struct {
	Timezone  string                    `toml:"timezone" env:"CARROT_TIMEZONE"`
	API       APIConfig                 `toml:"api" envPrefix:"CARROT_API_"`
	Storage   StorageConfig             `toml:"storage" envPrefix:"CARROT_STORAGE_"`
	Log       LogConfig                 `toml:"log" envPrefix:"CARROT_LOG_"`
	Earning   map[string]EarningConfig  `toml:"earning" validate:"dive"`
	Penalties PenaltyConfig             `toml:"penalties"`
	Goals     GoalsConfig               `toml:"goals"`
	Hydration HydrationConfig           `toml:"hydration"`
	Purchases map[string]PurchaseConfig `toml:"purchases" validate:"dive"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host           string  `toml:"host" env:"HOST" validate:"required"`
	Port           int     `toml:"port" env:"PORT" validate:"min=1,max=65535"`
	Metrics        bool    `toml:"metrics" env:"METRICS"`
	RateLimit      float64 `toml:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"` // producer requests per second; 0 disables
	RateBurst      int     `toml:"rate_burst" env:"RATE_BURST" validate:"gte=0"`
	RequestTimeout string  `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver      string `toml:"driver" env:"DRIVER" validate:"oneof=sqlite postgres redis memory"`
	DSN         string `toml:"dsn" env:"DSN"`
	RedisAddr   string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB     int    `toml:"redis_db" env:"REDIS_DB" validate:"gte=0"`
	RedisPass   string `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisPrefix string `toml:"redis_prefix" env:"REDIS_PREFIX"`
	SaveTimeout string `toml:"save_timeout" env:"SAVE_TIMEOUT"`
	// Circuit breaker on snapshot saves.
	BreakerFailures uint32 `toml:"breaker_failures" env:"BREAKER_FAILURES"`
	BreakerOpen     string `toml:"breaker_open" env:"BREAKER_OPEN"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" env:"FORMAT" validate:"oneof=json console"`
}

// EarningConfig is one [earning.<kind>] table.
type EarningConfig struct {
	Threshold int64  `toml:"threshold" validate:"gt=0"`
	Reward    string `toml:"reward" validate:"required"`
}

// PenaltyConfig holds the inactivity tiers.
type PenaltyConfig struct {
	ShortDays     int    `toml:"short_days" validate:"gt=0"`
	ShortPenalty  string `toml:"short_penalty"`
	WeeklyDays    int    `toml:"weekly_days" validate:"gtfield=ShortDays"`
	WeeklyPenalty string `toml:"weekly_penalty"`
}

// GoalsConfig sets daily targets per activity kind.
type GoalsConfig struct {
	Activities map[string]int64 `toml:"activities"`
}

// HydrationConfig sets the hydration goal and its daily bonus.
type HydrationConfig struct {
	Goal  int    `toml:"goal" validate:"gte=0"`
	Bonus string `toml:"bonus"`
}

// PurchaseConfig is one [purchases.<id>] package.
type PurchaseConfig struct {
	Price   string `toml:"price" validate:"required"`
	Credits string `toml:"credits" validate:"required"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	w := wallet.DefaultConfig()
	cfg := Config{
		Timezone: "Local",
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           7878,
			Metrics:        true,
			RateLimit:      20,
			RateBurst:      40,
			RequestTimeout: "30s",
		},
		Storage: StorageConfig{
			Driver:          "sqlite",
			RedisAddr:       "127.0.0.1:6379",
			RedisPrefix:     "carrot",
			SaveTimeout:     "2s",
			BreakerFailures: 5,
			BreakerOpen:     "30s",
		},
		Log:       LogConfig{Level: "info", Format: "console"},
		Earning:   make(map[string]EarningConfig),
		Goals:     GoalsConfig{Activities: make(map[string]int64)},
		Purchases: make(map[string]PurchaseConfig),
		Hydration: HydrationConfig{
			Goal:  w.Goals.Hydration,
			Bonus: domain.FormatAmount(w.HydrationBonus),
		},
	}
	for kind, r := range w.Rules {
		cfg.Earning[string(kind)] = EarningConfig{Threshold: r.Threshold, Reward: domain.FormatAmount(r.Reward)}
	}
	for _, t := range w.Tiers {
		switch t.Name {
		case "short":
			cfg.Penalties.ShortDays, cfg.Penalties.ShortPenalty = t.Days, domain.FormatAmount(t.Penalty)
		case "weekly":
			cfg.Penalties.WeeklyDays, cfg.Penalties.WeeklyPenalty = t.Days, domain.FormatAmount(t.Penalty)
		}
	}
	for kind, n := range w.Goals.Activities {
		cfg.Goals.Activities[string(kind)] = n
	}
	for id, p := range w.Packages {
		cfg.Purchases[id] = PurchaseConfig{Price: domain.FormatAmount(p.Price), Credits: p.Credits.String()}
	}
	return cfg
}

// Home returns the data directory: $CARROT_HOME or ~/.carrot.
func Home() string {
	if h := os.Getenv("CARROT_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".carrot"
	}
	return filepath.Join(home, ".carrot")
}

// ConfigPath returns the config file location under home.
func ConfigPath(home string) string { return filepath.Join(home, "config.toml") }

// LoadConfig reads path over the defaults, applies CARROT_* environment
// overrides and validates the result. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path unless it exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(DefaultConfig())
}

var validate = validator.New()

// Validate checks field constraints and that the economy converts cleanly.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Wallet(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Wallet converts the file format into the wallet's rule set.
func (c Config) Wallet() (wallet.Config, error) {
	w := wallet.DefaultConfig()

	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return w, err
	}
	w.Location = loc

	for name, e := range c.Earning {
		kind, err := domain.ParseActivityKind(name)
		if err != nil {
			return w, fmt.Errorf("earning: %w", err)
		}
		reward, err := parseAmount("earning."+name+".reward", e.Reward)
		if err != nil {
			return w, err
		}
		w.Rules[kind] = domain.EarningRule{Threshold: e.Threshold, Reward: reward}
	}
	if err := w.Rules.Validate(); err != nil {
		return w, err
	}

	short, err := parseAmount("penalties.short_penalty", c.Penalties.ShortPenalty)
	if err != nil {
		return w, err
	}
	weekly, err := parseAmount("penalties.weekly_penalty", c.Penalties.WeeklyPenalty)
	if err != nil {
		return w, err
	}
	w.Tiers = []inactivity.Tier{
		{Name: "short", Days: c.Penalties.ShortDays, Penalty: short, Severity: domain.SeverityWarning},
		{Name: "weekly", Days: c.Penalties.WeeklyDays, Penalty: weekly, Severity: domain.SeverityError},
	}

	for name, n := range c.Goals.Activities {
		kind, err := domain.ParseActivityKind(name)
		if err != nil {
			return w, fmt.Errorf("goals: %w", err)
		}
		w.Goals.Activities[kind] = n
	}
	w.Goals.Hydration = c.Hydration.Goal
	if w.HydrationBonus, err = parseAmount("hydration.bonus", c.Hydration.Bonus); err != nil {
		return w, err
	}

	if len(c.Purchases) > 0 {
		w.Packages = make(map[string]domain.PurchasePackage, len(c.Purchases))
	}
	for id, p := range c.Purchases {
		price, err := parseAmount("purchases."+id+".price", p.Price)
		if err != nil {
			return w, err
		}
		credits, err := parseAmount("purchases."+id+".credits", p.Credits)
		if err != nil {
			return w, err
		}
		w.Packages[id] = domain.PurchasePackage{ID: id, Price: price, Credits: credits}
	}

	w.SaveTimeout = parseDuration(c.Storage.SaveTimeout, 2*time.Second)
	w.Breaker = wallet.BreakerSettings{
		ConsecutiveFailures: c.Storage.BreakerFailures,
		OpenTimeout:         parseDuration(c.Storage.BreakerOpen, 30*time.Second),
	}
	w.Achievements = achievement.DefaultRules()
	return w, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func loadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: must not be negative", field)
	}
	if !d.Equal(domain.RoundAmount(d)) {
		return decimal.Zero, fmt.Errorf("%s: %s has more than %d decimal places", field, s, domain.AmountPlaces)
	}
	return d, nil
}

// parseDuration parses s, returning def when s is empty or malformed.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
