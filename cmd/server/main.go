package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/finwatch/finwatch/internal/aggregator"
	"github.com/finwatch/finwatch/internal/config"
	"github.com/finwatch/finwatch/internal/finnhub"
	"github.com/finwatch/finwatch/internal/server"
	"github.com/finwatch/finwatch/internal/session"
	"github.com/finwatch/finwatch/internal/stream"
	"github.com/finwatch/finwatch/internal/view"
	"github.com/finwatch/finwatch/internal/watchlist"
	"github.com/finwatch/finwatch/pkg/logger"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Server.LogLevel)

	// 2. Market data provider
	market := finnhub.NewClient(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL)
	agg := aggregator.New(market)

	// 3. Watchlist stores: Postgres for signed-in users, a JSON file for
	// the guest list. Without a database everyone is a guest.
	var userStore view.Store
	if cfg.Database.URL != "" {
		slog.Info("Connecting to database...")
		store, err := watchlist.NewStore(cfg.Database.URL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.AutoMigrate(); err != nil {
			slog.Error("Failed to auto-migrate schema", "error", err)
			os.Exit(1)
		}
		userStore = store
		slog.Info("Connected to database")
	} else {
		slog.Warn("No DATABASE_URL set, running with the guest watchlist only")
	}
	guestStore := watchlist.NewFileStore(cfg.Watchlist.GuestFile)

	// 4. Identity provider + session cache
	var (
		auth     *session.Client
		resolver *session.Resolver
	)
	if cfg.Auth.URL != "" {
		auth = session.NewClient(cfg.Auth.URL, cfg.Auth.APIKey)

		var cache *session.Cache
		slog.Info("Connecting to Redis...")
		cache, err = session.NewCache(cfg.Redis.Addr)
		if err != nil {
			slog.Warn("Session cache unavailable, resolving tokens per request", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			slog.Info("Connected to Redis")
		}
		resolver = session.NewResolver(auth, cache)
	} else {
		slog.Warn("No AUTH_URL set, authentication endpoints disabled")
	}

	// 5. Live tick stream
	var (
		hub  *stream.Hub
		live *stream.Client
	)
	hub = stream.NewHub()
	live = stream.NewClient(cfg.Finnhub.APIKey, cfg.Finnhub.StreamURL, hub)
	if err := live.Start(); err != nil {
		slog.Warn("Live stream unavailable", "error", err)
		hub, live = nil, nil
	} else {
		defer live.Close()
	}

	// 6. HTTP server
	handler := server.NewHandler(market, agg, auth, resolver, userStore, guestStore, hub, live)
	router := server.NewRouter(handler, resolver)

	go func() {
		slog.Info("Server listening", "port", cfg.Server.Port)
		if err := router.Run(":" + cfg.Server.Port); err != nil {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// 7. Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	sig := <-stop
	slog.Info("Shutdown signal received", "signal", sig)
	slog.Info("Shutting down...")
}
