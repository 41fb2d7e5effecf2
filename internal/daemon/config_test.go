package daemon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/studybunny/carrot/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7878 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7878)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if got := cfg.Earning["words_written"]; got.Threshold != 50 || got.Reward != "0.10" {
		t.Errorf("Earning[words_written] = %+v, want 50 / 0.10", got)
	}
	if cfg.Penalties.ShortDays != 3 || cfg.Penalties.ShortPenalty != "0.30" {
		t.Errorf("short tier = %d/%s", cfg.Penalties.ShortDays, cfg.Penalties.ShortPenalty)
	}
	if cfg.Penalties.WeeklyDays != 7 || cfg.Penalties.WeeklyPenalty != "0.70" {
		t.Errorf("weekly tier = %d/%s", cfg.Penalties.WeeklyDays, cfg.Penalties.WeeklyPenalty)
	}
	if cfg.Hydration.Goal != 8 || cfg.Hydration.Bonus != "0.05" {
		t.Errorf("hydration = %+v", cfg.Hydration)
	}
	if got := cfg.Purchases["large"]; got.Price != "19.99" || got.Credits != "4000" {
		t.Errorf("Purchases[large] = %+v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 7878 {
		t.Errorf("API.Port = %d", cfg.API.Port)
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
timezone = "UTC"

[api]
port = 9000

[storage]
driver = "memory"

[earning.focus_minutes]
threshold = 25
reward = "0.50"

[penalties]
short_days = 2
short_penalty = "0.10"
weekly_days = 5
weekly_penalty = "1.00"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host lost its default: %q", cfg.API.Host)
	}

	w, err := cfg.Wallet()
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	rule := w.Rules[domain.ActivityFocusMinutes]
	if rule.Threshold != 25 || !rule.Reward.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("focus rule = %+v", rule)
	}
	if w.Rules[domain.ActivityTasksCompleted].Threshold != 10 {
		t.Error("unrelated earning rule should keep its default")
	}
	if w.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", w.Location)
	}
	if len(w.Tiers) != 2 || w.Tiers[1].Days != 5 || !w.Tiers[1].Penalty.Equal(decimal.NewFromInt(1)) {
		t.Errorf("tiers = %+v", w.Tiers)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CARROT_API_PORT", "8123")
	t.Setenv("CARROT_STORAGE_DRIVER", "redis")
	t.Setenv("CARROT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 8123 {
		t.Errorf("API.Port = %d, want 8123", cfg.API.Port)
	}
	if cfg.Storage.Driver != "redis" {
		t.Errorf("Storage.Driver = %q, want redis", cfg.Storage.Driver)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad driver", "[storage]\ndriver = \"mongo\"\n"},
		{"bad port", "[api]\nport = 70000\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"zero threshold", "[earning.tasks_completed]\nthreshold = 0\nreward = \"0.1\"\n"},
		{"unknown kind", "[earning.naps]\nthreshold = 1\nreward = \"0.1\"\n"},
		{"bad reward", "[earning.tasks_completed]\nthreshold = 10\nreward = \"lots\"\n"},
		{"sub-cent reward", "[earning.tasks_completed]\nthreshold = 10\nreward = \"0.004\"\n"},
		{"sub-cent bonus", "[hydration]\nbonus = \"0.055\"\n"},
		{"weekly before short", "[penalties]\nshort_days = 7\nweekly_days = 3\n"},
		{"bad timezone", "timezone = \"Mars/Olympus\"\n"},
		{"negative bonus", "[hydration]\nbonus = \"-1\"\n"},
		{"malformed toml", "[api\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Purchases["medium"].Credits != "1500" {
		t.Errorf("Purchases[medium] = %+v", cfg.Purchases["medium"])
	}

	// An existing file is left alone.
	if err := os.WriteFile(path, []byte("timezone = \"UTC\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "timezone = \"UTC\"\n" {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

func TestHome(t *testing.T) {
	t.Setenv("CARROT_HOME", "/tmp/carrot-test")
	if got := Home(); got != "/tmp/carrot-test" {
		t.Errorf("Home() = %q", got)
	}
	if got := ConfigPath("/tmp/carrot-test"); got != "/tmp/carrot-test/config.toml" {
		t.Errorf("ConfigPath() = %q", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"5s", 5 * time.Second},
		{"1m30s", 90 * time.Second},
		{"", time.Second},
		{"soon", time.Second},
		{"-2s", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseDuration(tt.input, time.Second); got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, `"message":"shown"`) || !strings.Contains(out, `"service":"carrot"`) {
		t.Errorf("unexpected log output: %s", out)
	}

	if NewLogger(LogConfig{Level: "nonsense"}, &buf).GetLevel() != zerolog.InfoLevel {
		t.Error("unknown level should fall back to info")
	}
}

func TestOpen_MemoryDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = "memory"
	cfg.Timezone = "UTC"

	d, err := Open(context.Background(), cfg, t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if !d.Boot.Inactivity.FirstRun {
		t.Error("expected a first-run boot")
	}
	if !d.Wallet.Balance().IsZero() {
		t.Errorf("balance = %s, want 0", d.Wallet.Balance())
	}
	if d.Addr() != "127.0.0.1:7878" {
		t.Errorf("Addr() = %q", d.Addr())
	}
}

func TestOpen_SQLiteDriverPersists(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	home := t.TempDir()
	ctx := context.Background()

	d, err := Open(ctx, cfg, home, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := d.Wallet.TrackTodoCompleted(ctx, 10); err != nil {
		t.Fatalf("track: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := Open(ctx, cfg, home, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()
	if !d2.Boot.Restored {
		t.Error("expected the snapshot to be restored")
	}
	if got := d2.Wallet.Balance(); !got.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("balance = %s, want 0.10", got)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	if _, err := OpenStore(context.Background(), StorageConfig{Driver: "mongo"}, t.TempDir()); err == nil {
		t.Error("expected an error")
	}
}
