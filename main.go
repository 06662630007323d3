package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"bakery/internal/config"
	"bakery/internal/handlers"
	"bakery/internal/metrics"
	"bakery/internal/middleware"
	"bakery/internal/repositories"
	"bakery/internal/services"
	"bakery/pkg/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	db, err := repositories.OpenDB(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := repositories.Migrate(db); err != nil {
		return err
	}

	var (
		mqClient  *rabbitmq.Client
		publisher services.EventPublisher
	)
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange}, log)
		if err != nil {
			return err
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Info("RABBITMQ_URL is empty, order events are not published")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	app, err := newApp(cfg, db, publisher, m, reg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.AppPort)
		return app.Listen(cfg.AppPort)
	})
	if mqClient != nil {
		g.Go(func() error {
			return mqClient.Consume(gctx, eventLogger(log))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server gracefully stopped")
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newApp wires repositories, services and handlers on db and returns the Fiber app.
// publisher may be nil.
func newApp(cfg config.Config, db *gorm.DB, publisher services.EventPublisher, m *metrics.Metrics, gatherer prometheus.Gatherer, log *slog.Logger) (*fiber.App, error) {
	transitions, err := services.TransitionsFor(cfg.TransitionPolicy)
	if err != nil {
		return nil, err
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	notificationRepo := repositories.NewGORMNotificationRepository(db)

	// --- Services ---
	var catalog services.Catalog = services.NewRepositoryCatalog(productRepo)
	if cfg.CatalogCacheTTL > 0 {
		catalog = services.NewCachedCatalog(catalog, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	}
	router, err := services.NewVendorRouter(cfg.RoutingPolicy, userRepo, orderRepo)
	if err != nil {
		return nil, err
	}

	dispatcher := services.NewNotificationDispatcher(notificationRepo,
		services.WithTemplates(services.TemplatesFor(cfg.NotificationLocale)),
		services.WithNotificationPublisher(publisher),
		services.WithDispatcherMetrics(m),
		services.WithDispatcherLogger(log),
		services.WithRetry(cfg.NotifyMaxRetries, cfg.NotifyInitialInterval),
	)
	orderService := services.NewOrderService(orderRepo, userRepo, catalog, router, dispatcher,
		services.WithTransitions(transitions),
		services.WithEventPublisher(publisher),
		services.WithMetrics(m),
		services.WithLogger(log),
		services.WithCustomOrderPrice(cfg.CustomOrderPrice),
		services.WithDeleteOwnership(cfg.DeleteRequiresOwnership),
	)
	productService := services.NewProductService(productRepo, catalog)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	notificationHandler := handlers.NewNotificationHandler(dispatcher)

	app := fiber.New(fiber.Config{AppName: "bakery"})
	app.Use(logger.New())
	app.Use(middleware.Metrics(m))

	app.Get("/health", func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		if err := pingDB(c.UserContext(), db); err != nil {
			log.Warn("health check failed", "error", err)
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"time":     time.Now().Format(time.RFC3339),
			"rabbitmq": publisher != nil,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(gatherer)))

	// --- API Routes ---
	auth := middleware.AuthRequired(authService)
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1, auth)
	orderHandler.RegisterRoutes(apiV1, auth)
	notificationHandler.RegisterRoutes(apiV1, auth)

	return app, nil
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// eventLogger handles events read back from the broker by logging them. Bodies
// that are not JSON objects are rejected.
func eventLogger(log *slog.Logger) func(amqp.Delivery) error {
	log = log.With("component", "event_consumer")
	return func(msg amqp.Delivery) error {
		var payload map[string]any
		if err := json.Unmarshal(msg.Body, &payload); err != nil {
			return fmt.Errorf("malformed event %s: %w", msg.RoutingKey, err)
		}
		log.Info("event received", "routing_key", msg.RoutingKey, "order_id", payload["order_id"], "type", payload["type"])
		return nil
	}
}
