package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/infra/logging"
	"telegram-chat-summarizer/internal/infra/metrics"
	red "telegram-chat-summarizer/internal/infra/redis"
	tele "telegram-chat-summarizer/internal/infra/telegram"
	"telegram-chat-summarizer/internal/infra/worker"
	"telegram-chat-summarizer/internal/llm"
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
	limiter := red.NewRateLimiter(redisClient, logger)
	bus := red.NewStatusBus(redisClient, logger)
	queue := red.NewJobQueue(redisClient, cfg.Queue.Name, cfg.Queue.ResultTTL)

	// ---- Telegram read side ----
	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram connect failed")
	}
	chatClient := tele.NewChatClient(botAPI, cfg.Bot.HistoryDir, logger)

	// ---- Summarizer ----
	summarizer, err := llm.NewSummarizer(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal().Err(err).Msg("summarizer init failed")
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Output.Dir).Msg("output dir unavailable")
	}

	// ---- Pipeline & consumer ----
	pipeline := worker.NewPipeline(chatClient, summarizer, store, bus, limiter, worker.PipelineConfig{
		Provider:         cfg.LLM.Provider,
		Model:            cfg.LLM.Model,
		MaxHistoryTokens: cfg.LLM.MaxHistoryTokens,
		OutputDir:        cfg.Output.Dir,
		GlobalExtract:    cfg.Limits.GlobalExtracts,
		Retry:            cfg.Retry,
	}, logger)

	pool := worker.NewPool(cfg.Queue.Workers, logger)
	pool.Start(ctx)

	processor := worker.NewProcessor(queue, pipeline, logger)
	go processor.Start(ctx, pool)

	// ---- Retention sweep ----
	sweeper := worker.NewSweeper(cfg.Output.Dir, cfg.Output.Retention, logger)
	if err := sweeper.Start(cfg.Output.SweepCron); err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.Output.SweepCron).Msg("sweeper start failed")
	}

	logger.Info().Str("queue", cfg.Queue.Name).Str("provider", cfg.LLM.Provider).Msg("worker started")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	sweeper.Stop()
	pool.Stop()
}
