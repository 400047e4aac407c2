package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/safegergis/tome/services/content-service/config"
	"github.com/safegergis/tome/services/content-service/internal/adapters/primary/rest"
	"github.com/safegergis/tome/services/content-service/internal/adapters/secondary/eventbroker"
	"github.com/safegergis/tome/services/content-service/internal/adapters/secondary/repository"
	"github.com/safegergis/tome/services/content-service/internal/core/services"
)

const serviceName = "content-service"

func main() {
	cfg := config.Load()
	initLogger(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := initTracer(ctx, cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("⚠️ Tracing disabled", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Invalid database URL", "error", err)
		os.Exit(1)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("❌ Database ping failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Database connected")

	nc, err := nats.Connect(cfg.NatsURL,
		nats.Name(serviceName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		slog.Error("❌ NATS connection failed", "error", err)
		os.Exit(1)
	}
	defer nc.Drain()
	slog.Info("✅ NATS connected")

	publisher, err := eventbroker.NewNatsEventPublisher(nc)
	if err != nil {
		slog.Error("❌ JetStream setup failed", "error", err)
		os.Exit(1)
	}

	books := repository.NewPostgresBookRepository(pool)
	authors := repository.NewPostgresAuthorRepository(pool)
	genres := repository.NewPostgresGenreRepository(pool)

	catalog := services.NewCatalogService(books, authors, genres, publisher)

	server := rest.NewServer(catalog)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("🚀 Content service listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("❌ HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("❌ Graceful shutdown failed", "error", err)
	}
	slog.Info("👋 Content service stopped")
}

func initLogger(env string) {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp, nil
}
