package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synox/telewall/internal/ari"
	"github.com/synox/telewall/internal/call"
	"github.com/synox/telewall/internal/callstate"
	"github.com/synox/telewall/internal/cleanup"
	"github.com/synox/telewall/internal/config"
	"github.com/synox/telewall/internal/database"
	"github.com/synox/telewall/internal/metrics"
	"github.com/synox/telewall/internal/phonebook"
	"github.com/synox/telewall/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	logger.Info("starting telewall",
		"http_port", cfg.HTTPPort,
		"ari_url", cfg.ARIURL,
		"data_dir", cfg.DataDir,
	)

	// Open database and run migrations.
	db, err := database.Open(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	blocklist := database.NewBlocklist(db)
	history := database.NewCallHistory(db)
	settings := database.NewSettings(db)

	// Line state shared between the call flows, the web API and metrics.
	line := callstate.New(logger)

	// Reverse phonebook lookup is optional; without an API key callers are
	// shown by number only.
	var lookup call.NameLookup
	if cfg.PhonebookKey != "" {
		lookup = phonebook.New(cfg.PhonebookURL, cfg.PhonebookKey, logger)
	} else {
		logger.Info("phonebook lookup disabled, no api key configured")
	}

	// Application context for background goroutines.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// One ARI application per call flow, each with its own websocket.
	screening := call.NewApp(call.AppIncoming, connector(cfg, call.AppIncoming, logger),
		call.ScreeningFactory(call.ScreeningConfig{
			HandsetEndpoint: cfg.HandsetEndpoint,
			BlockPresses:    cfg.BlockPresses,
		}, blocklist, history, lookup, line, logger), logger)

	blocking := call.NewApp(call.AppBlock, connector(cfg, call.AppBlock, logger),
		call.BlockFactory(call.BlockConfig{
			BlockCode:   cfg.BlockCode,
			UnblockCode: cfg.UnblockCode,
		}, blocklist, history, logger), logger)

	announce := call.NewApp(call.AppManageRecording, connector(cfg, call.AppManageRecording, logger),
		call.AnnounceFactory(logger), logger)

	for _, app := range []*call.App{screening, blocking, announce} {
		app := app
		go func() {
			if err := app.Run(appCtx); err != nil {
				logger.Error("ari application stopped", "error", err)
			}
		}()
	}

	// Call history retention.
	go cleanup.NewJob(history, cfg.HistoryKeepDays, cleanup.DefaultInterval, logger).Run(appCtx)

	// Prometheus metrics.
	collector := metrics.NewCollector(
		map[string]metrics.SessionCounter{
			call.AppIncoming:        screening,
			call.AppBlock:           blocking,
			call.AppManageRecording: announce,
		},
		blocklist, history, line, time.Now(),
	)
	prometheus.MustRegister(collector)

	// HTTP server: REST API plus the metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", web.NewServer(blocklist, history, settings, line, logger))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		logger.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout. Cancelling the application context
	// hangs up in-flight call sessions.
	appCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("telewall stopped")
}

// connector returns a Connector that dials the configured Asterisk and
// subscribes to the named application.
func connector(cfg *config.Config, app string, logger *slog.Logger) call.Connector {
	return func(ctx context.Context) (*ari.Client, error) {
		return ari.Connect(ctx, cfg.ARIURL, app, cfg.ARIUsername, cfg.ARIPassword, logger)
	}
}
