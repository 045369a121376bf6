package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Altinn/altinn-notifications-sub006/internal/condition"
	"github.com/Altinn/altinn-notifications-sub006/internal/config"
	"github.com/Altinn/altinn-notifications-sub006/internal/contact"
	"github.com/Altinn/altinn-notifications-sub006/internal/dispatch"
	"github.com/Altinn/altinn-notifications-sub006/internal/handler"
	"github.com/Altinn/altinn-notifications-sub006/internal/infra/postgresql"
	"github.com/Altinn/altinn-notifications-sub006/internal/infra/postgresql/migrations"
	infraredis "github.com/Altinn/altinn-notifications-sub006/internal/infra/redis"
	"github.com/Altinn/altinn-notifications-sub006/internal/observability"
	"github.com/Altinn/altinn-notifications-sub006/internal/queue"
	"github.com/Altinn/altinn-notifications-sub006/internal/repository"
	"github.com/Altinn/altinn-notifications-sub006/internal/service"
	"github.com/Altinn/altinn-notifications-sub006/internal/transport"
)

const (
	consumerPrefetch = 16
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("pipeline terminated", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer broker.Close()

	orders := repository.NewGormOrderRepo(db)
	publisher := queue.NewRabbitMQPublisher(broker)
	consumer := queue.NewRabbitMQConsumer(broker, consumerPrefetch, logger)

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	emailGateway, err := dispatch.NewEmailGatewayClient(cfg.EmailGatewayURL)
	if err != nil {
		return fmt.Errorf("email gateway client initialization failed: %w", err)
	}
	smsGateway, err := dispatch.NewSmsGatewayClient(cfg.SmsGatewayURL)
	if err != nil {
		return fmt.Errorf("sms gateway client initialization failed: %w", err)
	}
	contacts, err := contact.NewProfileClient(cfg.ProfileAPIURL)
	if err != nil {
		return fmt.Errorf("profile client initialization failed: %w", err)
	}
	evaluator := condition.NewWebhookEvaluator(time.Duration(cfg.ConditionCheckTimeoutS) * time.Second)

	metrics := observability.NewMetrics()
	pauser := service.NewChannelPauser()

	pastDue, err := service.NewPastDueConsumer(
		orders,
		consumer,
		publisher,
		evaluator,
		contacts,
		emailGateway,
		smsGateway,
		pauser,
		rateLimiter,
		cfg.ConsumerConcurrency,
		logger,
	)
	if err != nil {
		return fmt.Errorf("past-due consumer initialization failed: %w", err)
	}
	pastDue.SetMetrics(metrics)

	statusConsumer, err := service.NewStatusConsumer(orders, consumer, logger)
	if err != nil {
		return fmt.Errorf("status consumer initialization failed: %w", err)
	}
	statusConsumer.SetMetrics(metrics)

	serviceUpdates, err := service.NewServiceUpdateConsumer(consumer, pauser, logger)
	if err != nil {
		return fmt.Errorf("service update consumer initialization failed: %w", err)
	}
	serviceUpdates.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterFeedRoutes(app, orders); err != nil {
		return fmt.Errorf("feed route registration failed: %w", err)
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pastDue.Start(groupCtx)
	})
	g.Go(func() error {
		return statusConsumer.Start(groupCtx)
	})
	g.Go(func() error {
		return serviceUpdates.Start(groupCtx)
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("feed api listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	logger.Info("notification order pipeline started",
		zap.Int("consumerConcurrency", cfg.ConsumerConcurrency),
		zap.Int("port", cfg.APIPort),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
