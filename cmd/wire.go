package cmd

import (
	"context"
	"errors"
	"fmt"

	"emarknews/cache"
	"emarknews/common"
	"emarknews/config"
	"emarknews/deduplication"
	"emarknews/enrich"
	"emarknews/orchestrator"
	"emarknews/ranking"
	"emarknews/shared/kafka"
	"emarknews/sources"

	"go.uber.org/zap"
)

// app holds the wired pipeline and whatever must be closed after it.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *orchestrator.Metrics
	orch    *orchestrator.Orchestrator
	closers []func() error
}

func loadConfig() config.Config {
	cfg := config.Load()
	if flagConfig != "" {
		cfg.CatalogPath = flagConfig
	}
	return cfg
}

// buildApp wires every component. Optional backends (redis, gemini, cohere,
// s3, kafka) are skipped with a warning when unconfigured or unreachable.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, metrics: orchestrator.NewMetrics()}

	var primary cache.Backend
	if cfg.RedisAddr != "" {
		rb, err := cache.NewRedisBackend(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
		if err != nil {
			logger.Warn("redis unavailable, using memory cache only", zap.Error(err))
		} else {
			primary = rb
			a.closers = append(a.closers, rb.Close)
		}
	}
	store := cache.NewStore(primary,
		cache.WithLogger(logger),
		cache.WithFallbackCapacity(cfg.MemoryCacheEntries),
		cache.WithFallbackCounter(a.metrics.CacheFallbacks),
	)
	tiered := cache.NewTieredCache(store, cache.TTLPolicy{
		FastTTL:     cfg.FastTTL,
		FullTTL:     cfg.FullTTL,
		StaleWindow: cfg.StaleWindow,
	}, logger)

	fetcher := sources.NewFetcher(sources.WithFetcherLogger(logger))
	registry := sources.NewDefaultRegistry(fetcher, cfg.NewsAPIKey, logger)

	rcfg, err := ranking.FromCatalog(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to build ranking config: %w", err)
	}
	engine, err := ranking.NewEngine(rcfg, ranking.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create ranking engine: %w", err)
	}

	deps := orchestrator.Deps{
		Catalog:   catalog,
		Sources:   registry,
		Cache:     tiered,
		Ranker:    engine,
		Filter:    deduplication.NewFilter(),
		Clusterer: deduplication.TitleClusterer{},
		Metrics:   a.metrics,
		Logger:    logger,
	}

	if provider := deduplication.NewCohereEmbeddings(cfg.CohereAPIKey, ""); provider != nil {
		deps.Clusterer = deduplication.NewEmbeddingClusterer(provider, logger)
		logger.Info("embedding clusterer enabled", zap.String("model", provider.ModelName()))
	}

	if cfg.GeminiAPIKey != "" {
		svc, err := enrich.NewGeminiService(ctx, enrich.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, logger)
		if err != nil {
			logger.Warn("enrichment disabled", zap.Error(err))
		} else {
			deps.Enricher = enrich.NewPipeline(svc, cfg.TargetLocale,
				enrich.WithExtractor(enrich.NewReadabilityExtractor()),
				enrich.WithConcurrency(cfg.EnrichConcurrency),
				enrich.WithPipelineLogger(logger),
			)
		}
	}

	if cfg.S3Bucket != "" {
		s3c, err := common.NewS3(ctx, common.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Warn("snapshot archive disabled", zap.Error(err))
		} else {
			deps.Archive = cache.NewArchive(s3c)
		}
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.EventsTopic != "" {
		pub, err := kafka.NewRefreshPublisher(cfg.KafkaBrokers, cfg.EventsTopic, logger)
		if err != nil {
			logger.Warn("refresh events disabled", zap.Error(err))
		} else {
			deps.Notifier = pub
			a.closers = append(a.closers, pub.Close)
		}
	}

	orch, err := orchestrator.New(deps, orchestrator.Options{
		Phase1Deadline: cfg.Phase1Deadline,
		Phase2Deadline: cfg.Phase2Deadline,
		MaxInFlight:    cfg.MaxInFlight,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	a.orch = orch
	return a, nil
}

// close stops the orchestrator first so no cycle writes to a closed backend.
func (a *app) close() error {
	if a.orch != nil {
		a.orch.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return common.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
