package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/hirehound/search/internal/api"
	"github.com/hirehound/search/pkg/bias"
	"github.com/hirehound/search/pkg/cache"
	"github.com/hirehound/search/pkg/clients"
	"github.com/hirehound/search/pkg/config"
	"github.com/hirehound/search/pkg/nlp"
	"github.com/hirehound/search/pkg/observability"
	"github.com/hirehound/search/pkg/ontology"
	"github.com/hirehound/search/pkg/perf"
	"github.com/hirehound/search/pkg/scoring"
	"github.com/hirehound/search/pkg/search"
	"github.com/hirehound/search/pkg/store"
)

func main() {
	// Local development convenience; deployed environments inject real
	// environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewStandardLoggerWithLevel(cfg.Logging.Prefix, cfg.Logging.Level)
	metrics := observability.NewPrometheusMetricsClient("hh")

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(ctx, cfg.Store, logger, metrics)
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	if cfg.Store.MigrateOnStart {
		if err := st.RunMigrations(); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	cacheLayer, err := cache.New(ctx, cfg.Cache, logger, metrics)
	if err != nil {
		// The cache constructor degrades to a noop layer itself; an
		// error here means the configuration is unusable.
		log.Fatalf("failed to initialize cache: %v", err)
	}

	var tokens clients.TokenSource
	if cfg.Embedding.APIKey != "" {
		tokens = clients.NewStaticTokenSource(cfg.Embedding.APIKey)
	} else {
		tokens = clients.NewIDTokenManager("", nil, logger)
	}

	embedder, err := clients.NewEmbeddingClient(ctx, cfg.Embedding, tokens, logger, metrics)
	if err != nil {
		log.Fatalf("failed to initialize embedding client: %v", err)
	}

	rerank := clients.NewRerankClient(cfg.Rerank, tokens, logger, metrics)
	trajectory := clients.NewTrajectoryClient(cfg.Trajectory, logger, metrics)
	rationale := clients.NewRationaleClient(cfg.NLP, logger, metrics)

	ont, err := ontology.New(logger)
	if err != nil {
		log.Fatalf("failed to load skill ontology: %v", err)
	}

	var parser *nlp.QueryParser
	if cfg.NLP.Enabled {
		router := nlp.NewIntentRouter(embedder, cfg.NLP.IntentThreshold, logger)
		extractor, err := nlp.NewEntityExtractor(nlp.ExtractorConfig{
			BaseURL:   cfg.NLP.LLMBaseURL,
			APIKey:    cfg.NLP.LLMAPIKey,
			Model:     cfg.NLP.LLMModel,
			Timeout:   cfg.NLP.LLMTimeout,
			CacheSize: cfg.NLP.ExtractorCacheSize,
			CacheTTL:  cfg.NLP.ExtractorCacheTTL,
		}, logger, metrics)
		if err != nil {
			log.Fatalf("failed to initialize entity extractor: %v", err)
		}
		expander := nlp.NewQueryExpander(ont, nlp.ExpanderConfig{
			MinConfidence: cfg.NLP.ExpansionMinConf,
		})
		parser = nlp.NewQueryParser(embedder, router, extractor, expander, nlp.ParserConfig{
			ConfidenceThreshold: cfg.NLP.ConfidenceThreshold,
		}, logger, metrics)

		// Intent anchors need one embedding round-trip; warm them in the
		// background so startup does not block on the embedding service.
		go func() {
			initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
			defer initCancel()
			if err := parser.Initialize(initCtx); err != nil {
				logger.Warn("NLP parser initialization failed, keyword fallback active", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	engine := scoring.NewEngine(scoring.NewCalculator(ont), cfg.Search.CoverageBonusCap)
	tracker := perf.NewTracker(cfg.Search.PerfBufferSize)

	specialties := bias.NewSpecialtyCache(cacheLayer)
	var diversity *bias.DiversityAnalyzer
	if cfg.Bias.DiversityEnabled {
		diversity = bias.NewDiversityAnalyzer(cfg.Bias, logger)
		diversity.UseSpecialtyCache(specialties)
	}
	events := bias.NewRecorder(st, logger, metrics)
	events.UseSpecialtyCache(specialties)

	svcCfg := search.Config{
		Store:    st,
		Cache:    cacheLayer,
		Embedder: embedder,
		Engine:   engine,

		Ontology:   ont,
		Rerank:     rerank,
		Trajectory: trajectory,
		Anonymizer: bias.NewAnonymizer(cfg.Bias, logger),
		Diversity:  diversity,
		Events:     events,
		Tracker:    tracker,

		Search:                 cfg.Search,
		NLPConfidenceThreshold: cfg.NLP.ConfidenceThreshold,

		Logger:  logger,
		Metrics: metrics,
	}
	if parser != nil {
		svcCfg.Parser = parser
	}
	if rationale != nil {
		svcCfg.Rationale = rationale
	}

	svc, err := search.NewService(svcCfg)
	if err != nil {
		log.Fatalf("failed to build search service: %v", err)
	}

	health := api.NewHealthChecker(tracker)
	health.RegisterCheck("pgvector", true, st.Readiness)
	health.RegisterCheck("redis", false, cacheLayer.Health)
	health.RegisterCheck("embeddings", false, embedder.Health)
	if rerank.Enabled() {
		health.RegisterCheck("rerank", false, rerank.Health)
	}
	if parser != nil {
		health.RegisterCheck("nlp", false, func(context.Context) error {
			if !parser.IsInitialized() {
				return errors.New("parser not initialized, keyword fallback active")
			}
			return nil
		})
	}
	if cfg.Trajectory.Enabled {
		health.RegisterCheck("trajectory", false, trajectory.Health)
	}

	server := api.NewServer(cfg.Server, svc, st, cacheLayer, health, logger, metrics)

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server starting", map[string]interface{}{
			"address":     cfg.Server.ListenAddress,
			"environment": cfg.Environment,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
			cancel()
		}
	}()
	health.SetReady(true)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("Shutdown signal received", map[string]interface{}{"signal": s.String()})
	case <-ctx.Done():
	}

	health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}

	// In-flight requests are drained; release outbound and storage
	// resources in dependency order.
	if err := trajectory.Close(); err != nil {
		logger.Warn("trajectory client close failed", map[string]interface{}{"error": err.Error()})
	}
	if err := embedder.Close(); err != nil {
		logger.Warn("embedding client close failed", map[string]interface{}{"error": err.Error()})
	}
	if err := cacheLayer.Close(); err != nil {
		logger.Warn("cache close failed", map[string]interface{}{"error": err.Error()})
	}
	if err := st.Close(); err != nil {
		logger.Warn("store close failed", map[string]interface{}{"error": err.Error()})
	}
	shutdownTracing()

	logger.Info("Shutdown complete", nil)
}
