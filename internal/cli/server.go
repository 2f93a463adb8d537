package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/catalog"
	"gifts-assessment-service/internal/config"
	"gifts-assessment-service/internal/infra/memory"
	"gifts-assessment-service/internal/infra/postgres"
	infraredis "gifts-assessment-service/internal/infra/redis"
	"gifts-assessment-service/internal/insight"
	"gifts-assessment-service/internal/llm"
	"gifts-assessment-service/internal/logger"
	"gifts-assessment-service/internal/observability"
	transport "gifts-assessment-service/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	registry := prometheus.NewRegistry()
	metrics := observability.MustNewMetrics(registry)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		bunDB = postgres.OpenBun(cfg.Postgres.URL)
		defer bunDB.Close()
	}

	builtin := catalog.MustBuiltin()
	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(builtin)
	if pool != nil {
		loader = postgres.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalogRepo app.CatalogRepository
	if redisClient != nil {
		catalogRepo = infraredis.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalogRepo = memory.NewCatalogRepository(loader, catalogTTL)
	}
	questionPool := app.NewQuestionPool(catalogRepo, builtin, log, metrics)

	var sessions app.ScoringRepository = memory.NewScoringRepository()
	if pool != nil {
		sessions = postgres.NewScoringRepository(pool)
	}
	service := app.NewAssessmentService(sessions, questionPool, log, metrics)

	cacheTTL := config.TTLDuration(cfg.Insight.CacheTTL, 30*24*time.Hour)
	var cache insight.AnalysisCache
	switch {
	case bunDB != nil:
		cache = postgres.NewAnalysisCache(bunDB)
	case redisClient != nil:
		cache = infraredis.NewAnalysisCache(redisClient, cacheTTL)
	default:
		cache = memory.NewAnalysisCache(cfg.Insight.CacheSize, cacheTTL)
	}

	analyzerOpts := []insight.Option{insight.WithCache(cache), insight.WithMetrics(metrics)}
	if completer := insight.SelectCompleter(providerConfigs(cfg), log); completer != nil {
		analyzerOpts = append(analyzerOpts, insight.WithCompleter(completer))
	} else {
		log.Info("no AI provider configured, narratives use heuristics and templates")
	}
	analyzer := insight.NewAnalyzer(insight.MustBuiltinTables(), insightOptions(cfg), log, analyzerOpts...)

	stores := transport.MemoryStateStores(0, redisTTL)
	if redisClient != nil {
		stores = func(sessionID string) app.SessionStateStore {
			return infraredis.NewSessionStateStore(redisClient, sessionID, redisTTL)
		}
	}

	auth := transport.NewAuth(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if !auth.Enabled() {
		log.Warn("jwt secret not configured, insight endpoint rejects every request")
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	perGift := cfg.Quiz.QuestionsPerGift
	router := transport.NewRouter(transport.RouterConfig{
		Assessments: transport.NewAssessmentHandler(service, analyzer, perGift, log),
		WS:          transport.NewWSHandler(service, analyzer, auth, stores, perGift, log),
		Auth:        auth,
		Metrics:     metrics,
		Gatherer:    registry,
		Log:         log,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Generous enough for a provider call on the insight endpoint.
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		log.Info("starting assessment service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// providerConfigs keeps the configured priority order and resolves keys.
func providerConfigs(cfg config.Config) []llm.ProviderConfig {
	out := make([]llm.ProviderConfig, 0, len(cfg.Insight.Providers))
	for _, p := range cfg.Insight.Providers {
		out = append(out, llm.ProviderConfig{
			Name:        p.Name,
			Model:       p.Model,
			BaseURL:     p.BaseURL,
			APIKey:      p.ResolvedAPIKey(),
			MaxTokens:   p.MaxTokens,
			Temperature: p.Temperature,
		})
	}
	return out
}

func insightOptions(cfg config.Config) insight.Options {
	return insight.Options{
		TopN:            cfg.Insight.TopN,
		ProviderTimeout: config.TTLDuration(cfg.Insight.ProviderTimeout, 30*time.Second),
		ServerTimeout:   config.TTLDuration(cfg.Insight.ServerTimeout, 45*time.Second),
	}
}
