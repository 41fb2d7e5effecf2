// Package cli implements the carrot command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studybunny/carrot/internal/daemon"
)

var (
	flagHome    string
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "carrot",
	Short: "Carrot currency wallet for Study Bunny",
	Long: `carrot tracks productive activity and turns it into CC (carrot currency).
Tasks, words, focus minutes, flashcards and quiz answers earn CC at fixed
thresholds; days away cost CC. State lives in ~/.carrot unless CARROT_HOME
or --home says otherwise.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "Data directory (default $CARROT_HOME or ~/.carrot)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default <home>/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log at debug level")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func homeDir() string {
	if flagHome != "" {
		return flagHome
	}
	return daemon.Home()
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return daemon.ConfigPath(homeDir())
}

func loadConfig() (daemon.Config, error) {
	cfg, err := daemon.LoadConfig(configPath())
	if err != nil {
		return cfg, err
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// openDaemon loads config and boots the wallet against the configured store.
// Every command is a session start, so inactivity penalties apply here.
func openDaemon(ctx context.Context, cmd *cobra.Command) (*daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := daemon.NewLogger(cfg.Log, cmd.ErrOrStderr())
	d, err := daemon.Open(ctx, cfg, homeDir(), log)
	if err != nil {
		return nil, err
	}
	if out := d.Boot.Inactivity; out.Penalized() {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  %s\n", out.Message())
	}
	return d, nil
}
