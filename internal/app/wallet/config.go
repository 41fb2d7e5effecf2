package wallet

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/app/achievement"
	"github.com/studybunny/carrot/internal/app/inactivity"
	"github.com/studybunny/carrot/internal/domain"
)

// Config is the static rule set a wallet runs with.
type Config struct {
	Rules          domain.EarningRules
	Tiers          []inactivity.Tier
	Achievements   []achievement.Rule
	Goals          domain.DailyGoals
	Packages       map[string]domain.PurchasePackage
	HydrationBonus decimal.Decimal // paid once per day when Goals.Hydration is reached
	Location       *time.Location  // calendar used for day boundaries
	SaveTimeout    time.Duration
	Breaker        BreakerSettings
	StatsHistory   int // transactions returned by Stats
}

// DefaultConfig returns the stock economy.
func DefaultConfig() Config {
	return Config{
		Rules:          domain.DefaultEarningRules(),
		Tiers:          inactivity.DefaultTiers(),
		Achievements:   achievement.DefaultRules(),
		Goals:          domain.DefaultDailyGoals(),
		Packages:       domain.DefaultPurchasePackages(),
		HydrationBonus: decimal.RequireFromString("0.05"),
		Location:       time.UTC,
		SaveTimeout:    2 * time.Second,
		Breaker:        DefaultBreakerSettings(),
		StatsHistory:   10,
	}
}

func (c *Config) normalize() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = 2 * time.Second
	}
	if c.StatsHistory <= 0 {
		c.StatsHistory = 10
	}
	if c.HydrationBonus.IsNegative() {
		return fmt.Errorf("hydration bonus must not be negative")
	}
	if c.Packages == nil {
		c.Packages = map[string]domain.PurchasePackage{}
	}
	for id, p := range c.Packages {
		if !p.Credits.IsPositive() {
			return fmt.Errorf("package %q: credits must be positive", id)
		}
	}
	return nil
}
