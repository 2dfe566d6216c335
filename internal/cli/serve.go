package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ranpulse/core-go/internal/chat"
	"ranpulse/core-go/internal/config"
	"ranpulse/core-go/internal/dashboard"
	"ranpulse/core-go/internal/db"
	"ranpulse/core-go/internal/httpapi"
	"ranpulse/core-go/internal/livefeed"
	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/notify"
	"ranpulse/core-go/internal/oam"
	"ranpulse/core-go/internal/source"
)

const notificationCapacity = 50

var (
	serveAddr     string
	serveLogLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API, live feed and source pollers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTPAddr = serveAddr
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = serveLogLevel
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides http.addr)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := httpapi.NewLogger(cfg.LogLevel)
	m := metrics.New()

	var pool *db.Pool
	if cfg.DatabaseURL != "" {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		switch {
		case err != nil && cfg.Sources.Mode == config.ModePostgres:
			return fmt.Errorf("connect database: %w", err)
		case err != nil:
			logger.Warn().Err(err).Msg("database unavailable, continuing without it")
		default:
			defer p.Close()
			pool = p
		}
	}

	hub := livefeed.NewHub(logger, m)
	go hub.Run(ctx)
	center := notify.NewCenter(notificationCapacity, hub)
	store := config.NewStore(cfg.SettingsPath)

	sel := &source.Selector{
		Config:   cfg,
		Fetcher:  source.NewFetcher(cfg.Sources.FetchTimeout),
		Mock:     source.NewMock(uint64(time.Now().UnixNano())),
		Log:      logger,
		Metrics:  m,
		Notifier: center,
	}
	opts := dashboard.Options{
		Builder:       sel,
		Settings:      store,
		Poll:          cfg.Poll,
		Publisher:     hub,
		Notifier:      center,
		ProbeInterval: cfg.OAM.Interval,
	}
	deps := httpapi.Deps{
		Settings:      store,
		Notifications: center,
		LiveFeed:      hub.ServeWS,
		Metrics:       m,
	}

	if pool != nil {
		q := pool.Queries()
		sel.Queries = q
		opts.Outages = q
		opts.Listener = db.NewListener(pool, logger, db.ChannelCallRecords, db.ChannelRemediationEvents, db.ChannelEvents)
		deps.DB = pool
	}
	if cfg.OAM.Enabled {
		prober, err := oam.FromConfig(cfg.OAM, logger, m)
		if err != nil {
			return fmt.Errorf("oam prober: %w", err)
		}
		opts.Prober = prober
	}
	if cfg.Chat.URL != "" {
		deps.Chat = chat.NewSession(logger, chat.NewClient(cfg.Chat.URL, cfg.Chat.Timeout), center, m)
	}

	svc := dashboard.New(logger, opts, m)
	deps.Dashboard = svc

	svcErr := make(chan error, 1)
	go func() {
		svcErr <- svc.Run(ctx)
	}()

	h := httpapi.NewHandler(logger, deps)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("mode", cfg.Sources.Mode).Msg("ranpulse listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		runErr = fmt.Errorf("http server: %w", err)
	case err := <-svcErr:
		if err != nil {
			runErr = fmt.Errorf("dashboard: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
	return runErr
}
