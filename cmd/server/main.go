package main // entry point of the hall reservation API

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/database"
	"github.com/iliyamo/hall-reservation/internal/handler"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/router"
	"github.com/iliyamo/hall-reservation/internal/service"
	"github.com/iliyamo/hall-reservation/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		log.Printf("telemetry: tracing disabled: %v", err)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("database: migrate: %v", err)
	}

	var rdb *redis.Client
	if rlCfg.Enabled || cacheCfg.Enabled {
		rdb = config.NewRedisClient() // nil disables limiter and cache
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.EventsQueue, cfg.AuditLogDir)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("audit-consumer: stopped: %v", err)
			}
		}()
	}

	stores := service.NewStores(db)
	availability, err := service.NewAvailabilityChecker(stores, cfg.AvailabilityPolicy)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	reservations := service.NewReservationService(stores, availability, events, time.Now)
	feedback := service.NewFeedbackService(stores, events, time.Now)
	inbox := service.NewNotificationService(stores)
	catalog := service.NewCatalogService(stores, time.Now)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.Trace())

	router.Register(e, db, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, stores.Users, stores.Tokens),
		Reservations:  handler.NewReservationHandler(reservations),
		Feedback:      handler.NewFeedbackHandler(feedback),
		Notifications: handler.NewNotificationHandler(inbox),
		Admin:         handler.NewAdminHandler(reservations, catalog),
		Catalog:       handler.NewCatalogHandler(catalog, rdb, cacheCfg.Prefix),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: rlCfg,
		Cache:     cacheCfg,
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s, policy=%s)", addr, cfg.Env, cfg.DBDriver, cfg.AvailabilityPolicy)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: shutdown: %v", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("telemetry: shutdown: %v", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
