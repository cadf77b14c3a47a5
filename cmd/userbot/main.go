package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/infra/logging"
	"telegram-chat-summarizer/internal/infra/metrics"
	red "telegram-chat-summarizer/internal/infra/redis"
	tele "telegram-chat-summarizer/internal/infra/telegram"
	"telegram-chat-summarizer/internal/usecase"
	"telegram-chat-summarizer/internal/userbot"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = redisClient.Close() }()

	store := red.NewRequestStore(redisClient)
	session := red.NewSessionState(redisClient, logger)
	limiter := red.NewRateLimiter(redisClient, logger)
	bus := red.NewStatusBus(redisClient, logger)
	queue := red.NewJobQueue(redisClient, cfg.Queue.Name, cfg.Queue.ResultTTL)

	dispatcher := usecase.NewDispatcher(store, queue, limiter, cfg.Limits.UserRequests, logger)
	flow := usecase.NewRequestFlow(store, session, limiter, dispatcher, cfg.Limits.UserRequests, logger)

	// Without a token the process degrades to a relay that only logs
	// deliveries; useful for watching events locally.
	if cfg.Bot.Token == "" {
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("bot.token is required outside dev mode")
		}
		logger.Info().Msg("no bot token, running relay with noop delivery")
		relay := userbot.NewRelay(bus, store, session, queue, tele.NewNoopSink(logger), logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("relay stopped")
			}
		}()
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		cancel()
		return
	}

	bot, err := tele.NewBot(cfg.Bot.Token, cfg.Bot.Workers, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram connect failed")
	}
	logger.Info().Str("bot", bot.Username()).Msg("userbot started")

	handler := userbot.NewHandler(flow, store, session, bot, bot, bot, logger)
	go func() {
		if err := bot.StartPolling(ctx, handler); err != nil {
			logger.Error().Err(err).Msg("polling stopped")
		}
	}()

	relay := userbot.NewRelay(bus, store, session, queue, bot, logger)
	go func() {
		if err := relay.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("relay stopped")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	bot.StopPolling()
}
