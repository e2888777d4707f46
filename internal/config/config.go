// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"` // 0 keeps SSE streams open
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	JWTSecret       string        `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL           string        `yaml:"url"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	TTL           time.Duration `yaml:"ttl"`
	EventsChannel string        `yaml:"events_channel"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type JobsConfig struct {
	Workers           int           `yaml:"workers"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	BatchSize         int           `yaml:"batch_size"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	StaleAfter        time.Duration `yaml:"stale_after"`
	ReaperInterval    time.Duration `yaml:"reaper_interval"`
}

type EventsConfig struct {
	Transport  string        `yaml:"transport"` // local|redis|nats
	BufferSize int           `yaml:"buffer_size"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"` // any OpenAI-compatible gateway
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxPromptTokens int    `yaml:"max_prompt_tokens"`
}

type MediaConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	GeneratePerMinute int `yaml:"generate_per_minute"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Events    EventsConfig    `yaml:"events"`
	AI        AIConfig        `yaml:"ai"`
	Media     MediaConfig     `yaml:"media"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, expands ${VAR} references from the
// environment and applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()

	// Minimal validation
	if !dev && cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if !dev && cfg.Server.JWTSecret == "" {
		return nil, errors.New("server.jwt_secret is required")
	}
	switch cfg.Events.Transport {
	case "local", "redis", "nats":
	default:
		return nil, fmt.Errorf("events.transport %q: want local|redis|nats", cfg.Events.Transport)
	}
	if cfg.Events.Transport == "redis" && cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required for events.transport=redis")
	}
	if cfg.Events.Transport == "nats" && cfg.NATS.URL == "" {
		return nil, errors.New("nats.url is required for events.transport=nats")
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Runtime.Dev && cfg.Server.JWTSecret == "" {
		cfg.Server.JWTSecret = "dev-secret"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Redis.EventsChannel == "" {
		cfg.Redis.EventsChannel = "studio:events"
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "studio.events"
	}

	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.PollInterval <= 0 {
		cfg.Jobs.PollInterval = 500 * time.Millisecond
	}
	if cfg.Jobs.BatchSize <= 0 {
		cfg.Jobs.BatchSize = cfg.Jobs.Workers * 2
	}
	if cfg.Jobs.GenerationTimeout <= 0 {
		cfg.Jobs.GenerationTimeout = 10 * time.Minute
	}
	if cfg.Jobs.StaleAfter <= cfg.Jobs.GenerationTimeout {
		cfg.Jobs.StaleAfter = cfg.Jobs.GenerationTimeout + 5*time.Minute
	}
	if cfg.Jobs.ReaperInterval <= 0 {
		cfg.Jobs.ReaperInterval = time.Minute
	}

	if cfg.Events.Transport == "" {
		cfg.Events.Transport = "local"
		if cfg.Redis.URL != "" {
			cfg.Events.Transport = "redis"
		}
	}
	if cfg.Events.BufferSize <= 0 {
		cfg.Events.BufferSize = 64
	}
	if cfg.Events.Heartbeat <= 0 {
		cfg.Events.Heartbeat = 25 * time.Second
	}

	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 12000
	}
	if cfg.Media.Timeout <= 0 {
		cfg.Media.Timeout = 2 * time.Minute
	}
	if cfg.RateLimit.GeneratePerMinute <= 0 {
		cfg.RateLimit.GeneratePerMinute = 20
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
