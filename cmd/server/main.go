package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aniserve/internal/api"
	"aniserve/internal/auth"
	"aniserve/internal/cache"
	"aniserve/internal/catalog"
	"aniserve/internal/config"
	"aniserve/internal/profile"
	"aniserve/internal/recommend"
	"aniserve/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	slog.Info("store opened", "path", cfg.Store.Path)

	responseCache := cache.New(cache.DefaultMaxEntries)

	sessions := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	prunerCtx, prunerCancel := context.WithCancel(context.Background())
	go sessions.StartPruner(prunerCtx, auth.DefaultPruneInterval)

	accounts := auth.NewAccountService(st, cfg.Auth.PasswordMinLen)
	profiles := profile.NewService(st)

	catalogClient := catalog.NewClient(cfg.Catalog.AniListURL, cfg.Catalog.JikanURL, cfg.Catalog.Timeout, responseCache)
	engine := recommend.NewEngine(catalogClient)

	var verifier auth.TokenVerifier
	if cfg.GoogleAuthEnabled() {
		verifier = auth.NewGoogleVerifier(cfg.Auth.Google.ClientID, cfg.Catalog.Timeout, responseCache)
		slog.Info("google auth enabled", "client_id", cfg.Auth.Google.ClientID)
	}

	server := api.NewServer(cfg, sessions, accounts, profiles, engine, catalogClient, responseCache, verifier)

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	prunerCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
