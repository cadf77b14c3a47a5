package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/infra/api"
	"telegram-chat-summarizer/internal/infra/logging"
	"telegram-chat-summarizer/internal/infra/metrics"
	red "telegram-chat-summarizer/internal/infra/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	mintToken := flag.Bool("mint-token", false, "print an admin bearer token and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	if cfg.API.AdminSecret == "" {
		logger.Fatal().Msg("api.admin_secret is required")
	}
	auth := api.NewAuthManager(cfg.API.AdminSecret, 12*time.Hour)

	if *mintToken {
		token, err := auth.Mint()
		if err != nil {
			logger.Fatal().Err(err).Msg("token mint failed")
		}
		fmt.Println(token)
		return
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = redisClient.Close() }()

	store := red.NewRequestStore(redisClient)
	limiter := red.NewRateLimiter(redisClient, logger)

	srv := api.NewServer(store, limiter, redisClient, auth, cfg.Output.Dir, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("status api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
