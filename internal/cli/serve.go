package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studybunny/carrot/internal/daemon"
	"github.com/studybunny/carrot/internal/domain"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	serveCmd.Flags().String("host", "", "Override [api].host")
	serveCmd.Flags().Int("port", 0, "Override [api].port")
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wallet HTTP API",
	Long: `Run the wallet as a long-lived HTTP service. The study dashboard talks to
it over JSON and listens for live updates on /api/events.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := openDaemon(ctx, cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		d.Config.API.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		d.Config.API.Port = port
	}

	fmt.Fprintf(cmd.OutOrStdout(), "🥕 Carrot wallet on http://%s (balance %s CC, storage %s)\n",
		d.Addr(), domain.FormatAmount(d.Wallet.Balance()), d.Config.Storage.Driver)
	return d.Serve(ctx)
}

// ─── config ─────────────────────────────────────────────────────────────────

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file if none exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if err := daemon.WriteDefault(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Config at %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config:   %s\n", configPath())
		fmt.Fprintf(out, "home:     %s\n", homeDir())
		fmt.Fprintf(out, "api:      %s:%d (metrics %t)\n", cfg.API.Host, cfg.API.Port, cfg.API.Metrics)
		fmt.Fprintf(out, "storage:  %s\n", cfg.Storage.Driver)
		fmt.Fprintf(out, "timezone: %s\n", cfg.Timezone)
		for _, kind := range domain.ActivityKinds() {
			if e, ok := cfg.Earning[string(kind)]; ok {
				fmt.Fprintf(out, "earning:  %-18s every %d → %s CC\n", kind, e.Threshold, e.Reward)
			}
		}
		fmt.Fprintf(out, "penalty:  %d days → %s CC, %d days → %s CC\n",
			cfg.Penalties.ShortDays, cfg.Penalties.ShortPenalty,
			cfg.Penalties.WeeklyDays, cfg.Penalties.WeeklyPenalty)
		return nil
	},
}
