package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"example.com/playdate/internal/api"
	"example.com/playdate/internal/auth"
	"example.com/playdate/internal/catalog"
	"example.com/playdate/internal/config"
	"example.com/playdate/internal/consumer"
	"example.com/playdate/internal/matcher"
	"example.com/playdate/internal/observability"
	"example.com/playdate/internal/persistence"
	httptransport "example.com/playdate/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled: cfg.OTELEnabled,
		Writer:  os.Stderr,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}

	store, closeStore, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open candidate store", zap.Error(err))
	}
	defer closeStore()

	accessor := catalog.NewAccessor(store,
		catalog.WithTTL(cfg.CandidateCacheTTL),
		catalog.WithLogger(logger.Named("catalog")),
	)
	service := matcher.NewService(accessor, store, store,
		matcher.WithLogger(logger.Named("matcher")),
		matcher.WithTracer(otel.Tracer("playdate-matcher")),
	)

	handler := api.NewHandler(service, catalog.NewPicker(store), accessor, api.WithLogger(logger.Named("api")))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux,
		auth.RequestIDs,
		httptransport.AccessLog(logger.Named("http")),
		httptransport.CORS(cfg.CORSOrigin),
		authMiddleware.Wrap,
	), logger)

	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		reader := consumer.NewKafkaReader(consumer.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.ConsumerGroup,
			Topic:   cfg.SyncTopic,
		})
		proc := consumer.NewProcessor(reader,
			consumer.NewSyncHandler(accessor, logger.Named("sync")),
			consumer.WithLogger(logger.Named("consumer")),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()
			logger.Info("sync consumer started", zap.String("topic", cfg.SyncTopic), zap.String("group", cfg.ConsumerGroup))
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("sync consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("KAFKA_BROKERS not set, cache relies on TTL and manual invalidation")
	}

	go func() {
		logger.Info("playdate-matcher listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	wg.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
}
