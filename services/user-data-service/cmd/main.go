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
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/safegergis/tome/services/user-data-service/config"
	"github.com/safegergis/tome/services/user-data-service/internal/adapters/primary/events"
	"github.com/safegergis/tome/services/user-data-service/internal/adapters/primary/rest"
	"github.com/safegergis/tome/services/user-data-service/internal/adapters/secondary/clients"
	"github.com/safegergis/tome/services/user-data-service/internal/adapters/secondary/eventbroker"
	"github.com/safegergis/tome/services/user-data-service/internal/adapters/secondary/repository"
	"github.com/safegergis/tome/services/user-data-service/internal/adapters/secondary/timeline"
	"github.com/safegergis/tome/services/user-data-service/internal/core/services"
)

const serviceName = "user-data-service"

func main() {
	cfg := config.Load()
	initLogger(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Observabilité ---
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

	// --- Infrastructure (Secondary Adapters) ---
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		slog.Warn("⚠️ Redis tracing disabled", "error", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("❌ Redis connection failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Redis connected")

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

	publisher, err := eventbroker.NewNatsActivityPublisher(nc)
	if err != nil {
		slog.Error("❌ JetStream setup failed", "error", err)
		os.Exit(1)
	}

	userBookRepo := repository.NewPostgresUserBookRepository(pool)
	sessionRepo := repository.NewPostgresSessionRepository(pool)
	listRepo := repository.NewPostgresListRepository(pool)
	friendshipRepo := repository.NewPostgresFriendshipRepository(pool)
	timelineRepo := timeline.NewRedisTimelineRepo(redisClient)

	bookClient := clients.NewBookClient(cfg.ContentServiceURL, redisClient)
	userClient := clients.NewUserClient(cfg.AuthServiceURL)

	// --- Application Core ---
	shelfService := services.NewShelfService(userBookRepo, bookClient, publisher)
	sessionService := services.NewSessionService(sessionRepo, userBookRepo, bookClient, publisher)
	listService := services.NewListService(listRepo, friendshipRepo, bookClient, publisher)
	friendshipService := services.NewFriendshipService(friendshipRepo, userClient)
	statsService := services.NewStatsService(sessionRepo, userBookRepo, bookClient)
	feedService := services.NewFeedService(timelineRepo, friendshipRepo, sessionRepo, userBookRepo, listRepo, bookClient, userClient)

	// --- Primary Adapters ---
	js, err := nc.JetStream()
	if err != nil {
		slog.Error("❌ JetStream context failed", "error", err)
		os.Exit(1)
	}
	eventHandler := events.NewEventHandler(feedService, listService)
	if err := eventHandler.Subscribe(js); err != nil {
		slog.Error("❌ Event subscription failed", "error", err)
		os.Exit(1)
	}
	slog.Info("📨 Event consumers ready")

	validator, err := rest.NewRSAValidator(cfg.JwtPublicKeyPath)
	if err != nil {
		slog.Error("❌ JWT public key unavailable", "error", err)
		os.Exit(1)
	}

	server := rest.NewServer(
		shelfService, sessionService, listService,
		friendshipService, statsService, feedService,
		validator,
	)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("🚀 User data service listening", "addr", cfg.Addr())
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
	slog.Info("👋 User data service stopped")
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
