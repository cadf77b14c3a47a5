package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BotConfig struct {
	Token   string `yaml:"token"`
	Workers int    `yaml:"workers"` // polling workers
	// HistoryDir is where the MTProto-side exporter drops per-chat
	// history dumps (<chat_id>.jsonl) for the worker to iterate.
	HistoryDir string `yaml:"history_dir"`
}

type LLMConfig struct {
	Provider         string        `yaml:"provider"` // endpoint | openai | gemini
	EndpointURL      string        `yaml:"endpoint_url"`
	APIKey           string        `yaml:"api_key"`
	Model            string        `yaml:"model"`
	MaxHistoryTokens int           `yaml:"max_history_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
}

type QueueConfig struct {
	Name      string        `yaml:"name"`
	Workers   int           `yaml:"workers"` // concurrent extraction jobs
	ResultTTL time.Duration `yaml:"result_ttl"`
}

type RateRule struct {
	Limit  int           `yaml:"limit"`
	Period time.Duration `yaml:"period"`
}

type LimitsConfig struct {
	UserRequests   RateRule `yaml:"user_requests"`
	GlobalExtracts RateRule `yaml:"global_extracts"`
}

type RetryConfig struct {
	MaxTries int           `yaml:"max_tries"`
	Delay    time.Duration `yaml:"delay"`
	Backoff  float64       `yaml:"backoff"`
}

type OutputConfig struct {
	Dir       string        `yaml:"dir"`
	Retention time.Duration `yaml:"retention"`
	SweepCron string        `yaml:"sweep_cron"`
}

type APIConfig struct {
	Port        int    `yaml:"port"`
	AdminSecret string `yaml:"admin_secret"`
}

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Redis  RedisConfig  `yaml:"redis"`
	Bot    BotConfig    `yaml:"bot"`
	LLM    LLMConfig    `yaml:"llm"`
	Queue  QueueConfig  `yaml:"queue"`
	Limits LimitsConfig `yaml:"limits"`
	Retry  RetryConfig  `yaml:"retry"`
	Output OutputConfig `yaml:"output"`
	API    APIConfig    `yaml:"api"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path and applies .env / environment
// overrides for the secrets that usually live outside the file.
func LoadConfig(path string, dev bool) (*Config, error) {
	// Best-effort: a missing .env is fine, env vars still apply.
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Output.Dir == "" {
		return nil, errors.New("output.dir is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_ENDPOINT_URL"); v != "" {
		cfg.LLM.EndpointURL = v
	}
	if v := os.Getenv("API_ADMIN_SECRET"); v != "" {
		cfg.API.AdminSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.HistoryDir == "" {
		cfg.Bot.HistoryDir = "data/history"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "endpoint"
	}
	if cfg.LLM.MaxHistoryTokens <= 0 {
		cfg.LLM.MaxHistoryTokens = 3000
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "default"
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.ResultTTL <= 0 {
		cfg.Queue.ResultTTL = time.Hour
	}
	if cfg.Limits.UserRequests.Limit <= 0 {
		cfg.Limits.UserRequests = RateRule{Limit: 5, Period: time.Hour}
	}
	if cfg.Limits.GlobalExtracts.Limit <= 0 {
		cfg.Limits.GlobalExtracts = RateRule{Limit: 20, Period: time.Hour}
	}
	if cfg.Retry.MaxTries <= 0 {
		cfg.Retry.MaxTries = 3
	}
	if cfg.Retry.Delay <= 0 {
		cfg.Retry.Delay = time.Second
	}
	if cfg.Retry.Backoff <= 1 {
		cfg.Retry.Backoff = 2.0
	}
	if cfg.Output.Retention <= 0 {
		cfg.Output.Retention = 48 * time.Hour
	}
	if cfg.Output.SweepCron == "" {
		cfg.Output.SweepCron = "0 * * * *"
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
}
