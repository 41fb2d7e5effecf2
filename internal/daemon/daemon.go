package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/studybunny/carrot/internal/api"
	"github.com/studybunny/carrot/internal/app/notify"
	"github.com/studybunny/carrot/internal/app/wallet"
	"github.com/studybunny/carrot/internal/domain"
	"github.com/studybunny/carrot/internal/infra/memstore"
	"github.com/studybunny/carrot/internal/infra/observability"
	"github.com/studybunny/carrot/internal/infra/redisstore"
	"github.com/studybunny/carrot/internal/infra/sqlstore"
)

// Daemon is a fully wired process: store, wallet, metrics and API.
type Daemon struct {
	Config   Config
	Home     string
	Log      zerolog.Logger
	Store    domain.StateStore
	Wallet   *wallet.Service
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Boot     wallet.BootReport
}

// Open builds the daemon from cfg and boots the wallet. home is the data
// directory used by the sqlite driver when no DSN is configured.
func Open(ctx context.Context, cfg Config, home string, log zerolog.Logger) (*Daemon, error) {
	wcfg, err := cfg.Wallet()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Storage, home)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	w, err := wallet.New(store, wcfg,
		wallet.WithLogger(log.With().Str("component", "wallet").Logger()),
		wallet.WithMetrics(metrics),
		wallet.WithSink(notify.NewLogSink(log.With().Str("component", "events").Logger())),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	d := &Daemon{
		Config:   cfg,
		Home:     home,
		Log:      log,
		Store:    store,
		Wallet:   w,
		Metrics:  metrics,
		Registry: reg,
	}
	d.Boot = w.Boot(ctx)
	if d.Boot.Fallback {
		log.Warn().Err(d.Boot.LoadError).Msg("stored ledger was unreadable; started from defaults")
	}
	return d, nil
}

// OpenStore connects the configured persistence backend.
func OpenStore(ctx context.Context, cfg StorageConfig, home string) (domain.StateStore, error) {
	timeout := parseDuration(cfg.SaveTimeout, 2*time.Second)
	switch cfg.Driver {
	case "", sqlstore.DriverSQLite:
		var (
			s   *sqlstore.Store
			err error
		)
		if cfg.DSN != "" {
			s, err = sqlstore.Open(sqlstore.DriverSQLite, cfg.DSN)
		} else {
			s, err = sqlstore.OpenSQLite(filepath.Clean(home))
		}
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s.SetTimeout(timeout)
		return s, nil
	case sqlstore.DriverPostgres:
		s, err := sqlstore.Open(sqlstore.DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		s.SetTimeout(timeout)
		return s, nil
	case "redis":
		s, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		s.SetTimeout(timeout)
		return s, nil
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// Handler returns the HTTP API for this daemon.
func (d *Daemon) Handler() http.Handler {
	srv := api.NewServer(d.Wallet, d.Log.With().Str("component", "api").Logger())
	if d.Config.API.Metrics {
		srv.EnableMetrics(d.Registry)
	}
	srv.SetRateLimit(d.Config.API.RateLimit, d.Config.API.RateBurst)
	srv.SetRequestTimeout(parseDuration(d.Config.API.RequestTimeout, 30*time.Second))
	return srv.Handler()
}

// Addr is the listen address from the API config.
func (d *Daemon) Addr() string {
	return net.JoinHostPort(d.Config.API.Host, strconv.Itoa(d.Config.API.Port))
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Serve(ctx context.Context) error {
	hs := &http.Server{
		Addr:              d.Addr(),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when ctx is cancelled instead of holding Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		d.Log.Info().Str("addr", hs.Addr).Msg("carrot api listening")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d.Log.Info().Msg("shutting down")
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the store.
func (d *Daemon) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
