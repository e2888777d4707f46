// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"content-studio/internal/cachesync"
	"content-studio/internal/config"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/domain/ports/repository"
	aiAdapters "content-studio/internal/infra/adapters/ai"
	"content-studio/internal/infra/adapters/generator"
	apiv1 "content-studio/internal/infra/api/apiv1"
	"content-studio/internal/infra/db/cached"
	"content-studio/internal/infra/db/memory"
	pg "content-studio/internal/infra/db/postgres"
	"content-studio/internal/infra/events"
	"content-studio/internal/infra/logging"
	"content-studio/internal/infra/metrics"
	natsTransport "content-studio/internal/infra/nats"
	red "content-studio/internal/infra/redis"
	"content-studio/internal/infra/sched"
	"content-studio/internal/infra/scheduler"
	"content-studio/internal/infra/worker"
	"content-studio/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

type repos struct {
	jobs     repository.JobRepository
	entities repository.EntityRepository
	activity repository.ActivityRepository
	tm       repository.TransactionManager
	pool     *pgxpool.Pool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: in-memory stores, noop generators without AI keys")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting content-studio")

	// ---- Redis (optional) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
	}

	// ---- Cache store ----
	var cacheStore cachesync.Store = cachesync.NewMemoryStore()
	if redisClient != nil {
		cacheStore = red.NewCacheStore(redisClient, "studio")
	}

	// ---- Repositories ----
	rp, err := buildRepos(ctx, cfg, cacheStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("repositories")
	}
	if rp.pool != nil {
		defer rp.pool.Close()
	}

	// ---- Events ----
	bus := events.NewBus(cfg.Events.BufferSize, logger)
	defer bus.Close()
	publisher, stopTransport, err := buildPublisher(ctx, cfg, bus, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("event transport")
	}
	defer stopTransport()

	invalidator := cachesync.NewStoreInvalidator(cacheStore, logger)
	cacheSub := bus.Subscribe("cache-invalidator", nil)
	go cachesync.NewConsumer(invalidator, logger).Run(ctx, cacheSub.C())

	// ---- Use cases ----
	activityUC := usecase.NewActivityUseCase(rp.activity, publisher, logger)
	jobUC := usecase.NewJobUseCase(rp.jobs, rp.entities, rp.tm, publisher, activityUC, logger)
	generationUC := usecase.NewGenerationUseCase(jobUC, rp.entities, logger)
	entityUC := usecase.NewEntityUseCase(rp.entities, publisher, activityUC, logger)
	statsUC := usecase.NewStatsUseCase(rp.jobs, rp.entities, logger)

	// ---- Generators ----
	registry, err := buildGenerators(ctx, cfg, rp.entities, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("generators")
	}

	// ---- Dispatcher ----
	pool := worker.NewPool(cfg.Jobs.Workers, logger)
	pool.Start(ctx)
	dispatcher := worker.NewDispatcher(rp.jobs, jobUC, registry, worker.DispatcherConfig{
		PollInterval:      cfg.Jobs.PollInterval,
		BatchSize:         cfg.Jobs.BatchSize,
		GenerationTimeout: cfg.Jobs.GenerationTimeout,
	}, logger)
	go dispatcher.Start(ctx, pool)

	// ---- Watchdog + samplers ----
	var locker sched.Locker
	if redisClient != nil {
		locker = red.NewLocker(redisClient)
	}
	reaper := sched.NewStaleJobReaper(rp.jobs, jobUC, locker, cfg.Jobs.ReaperInterval, cfg.Jobs.StaleAfter, logger)
	go func() {
		if err := reaper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("stale job reaper stopped")
		}
	}()

	sampler := sched.NewPoolStatsSampler(rp.pool, statsUC)
	samplerLoop := scheduler.NewScheduler("pool-stats", 15*time.Second, sampler.Sample, logger)
	samplerLoop.Start(ctx)
	defer samplerLoop.Stop()

	// ---- HTTP API ----
	deps := apiv1.Deps{
		Generation: generationUC,
		Jobs:       jobUC,
		Entities:   entityUC,
		Activity:   activityUC,
		Stats:      statsUC,
		Bus:        bus,
		Auth:       apiv1.NewAuthManager(cfg.Server.JWTSecret, 24*time.Hour),
		Cache:      cacheStore,
	}
	if redisClient != nil {
		deps.Limiter = red.NewRateLimiter(redisClient)
	}
	api := apiv1.NewServer(deps, apiv1.Options{
		GeneratePerMinute: cfg.RateLimit.GeneratePerMinute,
		Heartbeat:         cfg.Events.Heartbeat,
		CacheTTL:          cfg.Redis.TTL,
	}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
	pool.Stop()
	logger.Info().Msg("bye")
}

func buildRepos(ctx context.Context, cfg *config.Config, store cachesync.Store, logger *zerolog.Logger) (*repos, error) {
	if cfg.Runtime.Dev && cfg.Database.URL == "" {
		logger.Warn().Msg("DEV MODE: in-memory repositories, data is lost on exit")
		return &repos{
			jobs:     memory.NewJobRepo(),
			entities: memory.NewEntityRepo(),
			activity: memory.NewActivityRepo(),
			tm:       memory.NewTxManager(),
		}, nil
	}

	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &repos{
		jobs:     cached.NewJobRepo(pg.NewJobRepo(pool), store, cfg.Redis.TTL),
		entities: cached.NewEntityRepo(pg.NewEntityRepo(pool), store, cfg.Redis.TTL),
		activity: pg.NewActivityRepo(pool),
		tm:       pg.NewTxManager(pool),
		pool:     pool,
	}, nil
}

// buildPublisher returns the event publisher for use cases. With a remote
// transport, events reach the local bus through the relay so every instance
// sees them.
func buildPublisher(ctx context.Context, cfg *config.Config, bus *events.Bus, client *red.Client, logger *zerolog.Logger) (adapter.EventPublisher, func(), error) {
	var transport events.Transport
	stop := func() {}
	switch cfg.Events.Transport {
	case "redis":
		if client == nil {
			return nil, stop, errors.New("events.transport=redis needs redis.url")
		}
		transport = red.NewEventTransport(client, cfg.Redis.EventsChannel)
	case "nats":
		nt, err := natsTransport.Connect(cfg.NATS, logger)
		if err != nil {
			return nil, stop, err
		}
		transport = nt
		stop = func() {
			if err := nt.Close(); err != nil {
				logger.Warn().Err(err).Msg("nats drain")
			}
		}
	default:
		logger.Info().Msg("events: in-process bus only")
		return bus, stop, nil
	}

	relay := events.NewRelay(transport, bus, logger)
	go relay.Run(ctx)
	logger.Info().Str("transport", transport.Name()).Msg("events: relay started")
	return relay, stop, nil
}

func buildGenerators(ctx context.Context, cfg *config.Config, entities repository.EntityRepository, logger *zerolog.Logger) (*generator.Registry, error) {
	providers := map[string]adapter.AIServiceAdapter{}
	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, cfg.AI.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		providers["openai"] = oa
	}
	if cfg.AI.GeminiKey != "" {
		gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, geminiModel(cfg.AI.DefaultModel), 0)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		providers["gemini"] = gm
	}

	var llm adapter.AIServiceAdapter
	switch {
	case len(providers) > 0:
		def := "openai"
		if _, ok := providers[def]; !ok || strings.HasPrefix(strings.ToLower(cfg.AI.DefaultModel), "gemini") {
			if _, ok := providers["gemini"]; ok {
				def = "gemini"
			}
		}
		llm = aiAdapters.NewMultiAIAdapter(def, providers, nil)
		logger.Info().Str("default_provider", def).Str("model", cfg.AI.DefaultModel).Msg("AI providers configured")
	case cfg.Runtime.Dev:
		logger.Warn().Msg("DEV MODE: no AI key configured, using the noop LLM")
		llm = aiAdapters.NewNoopAIAdapter(2*time.Second, logger)
	default:
		return nil, errors.New("no AI provider configured: set ai.openai_key or ai.gemini_key")
	}

	var media adapter.MediaService = generator.NoopMedia{}
	if cfg.Media.BaseURL != "" {
		mc, err := generator.NewMediaClient(cfg.Media)
		if err != nil {
			return nil, fmt.Errorf("media client: %w", err)
		}
		media = mc
	} else {
		logger.Warn().Msg("media.base_url not set, audio and images get placeholder URLs")
	}

	return generator.NewDefaultRegistry(generator.Deps{
		LLM:             aiAdapters.NewLimitedAI(llm, cfg.AI.ConcurrentLimit),
		Media:           media,
		Entities:        entities,
		Model:           cfg.AI.DefaultModel,
		MaxPromptTokens: cfg.AI.MaxPromptTokens,
	}), nil
}

func geminiModel(def string) string {
	if strings.HasPrefix(strings.ToLower(def), "gemini") {
		return def
	}
	return "gemini-2.0-flash"
}
