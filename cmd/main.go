package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shenikar/speedbump_logger/internal/config"
	"github.com/shenikar/speedbump_logger/internal/detector"
	"github.com/shenikar/speedbump_logger/internal/geolocation"
	v1 "github.com/shenikar/speedbump_logger/internal/handler/http/v1"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/shenikar/speedbump_logger/internal/outbox"
	"github.com/shenikar/speedbump_logger/internal/repository"
	"github.com/shenikar/speedbump_logger/internal/service"
	"github.com/shenikar/speedbump_logger/pkg/logger"
	mqttclient "github.com/shenikar/speedbump_logger/pkg/mqtt"
	"github.com/shenikar/speedbump_logger/pkg/postgres"
	redisclient "github.com/shenikar/speedbump_logger/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/speedbump_logger/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const shutdownTimeout = 5 * time.Second

// @title Speed Bump Logger API
// @version 1.0
// @description Speed bump detection and logging service.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "speedbump",
		Short:         "Speed bump detection and logging service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the monitoring controller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				logrus.Errorf("Failed to load config: %v", err)
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			if !skipMigrations {
				if err := runMigrations(cfg, log, "up"); err != nil {
					log.Errorf("Failed to run database migrations: %v", err)
					return err
				}
			}

			if err := serve(cmd.Context(), cfg, log); err != nil {
				log.Errorf("Service stopped with error: %v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				logrus.Errorf("Failed to load config: %v", err)
				return err
			}
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err := runMigrations(cfg, log, direction); err != nil {
				log.Errorf("Failed to run database migrations: %v", err)
				return err
			}
			return nil
		},
	}
}

func runMigrations(cfg *config.Config, log *logrus.Logger, direction string) error {
	log.WithField("direction", direction).Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
		migrationURL = strings.Replace(migrationURL, "postgresql://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if direction == "down" {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func serve(parent context.Context, cfg *config.Config, log *logrus.Logger) error {
	// Контекст для graceful shutdown
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// MQTT нужен только нативному источнику позиций
	var mqttClient mqtt.Client
	if cfg.MQTTBroker != "" {
		mqttClient, err = mqttclient.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID, log)
		if err != nil {
			if cfg.GeoBackend == "native" {
				return fmt.Errorf("failed to connect to MQTT broker: %w", err)
			}
			log.WithError(err).Warn("MQTT broker unavailable, native geolocation disabled")
			mqttClient = nil
		} else {
			defer mqttClient.Disconnect(250)
		}
	}

	// Источник позиций
	webSource := geolocation.NewWebSource(log)
	source, err := geolocation.Select(cfg.GeoBackend, mqttClient, func(c mqtt.Client) geolocation.Source {
		return geolocation.NewMQTTSource(c, cfg.MQTTTopicPrefix, cfg.DeviceID, log)
	}, webSource, log)
	if err != nil {
		return err
	}

	// Инициализация репозиториев
	store := repository.NewSpeedBumpRepository(dbpool)
	cache := repository.NewBumpCache(redisClient, cfg.CacheKey)
	feed := repository.NewChangeFeed(dbpool, cfg.RealtimeChannel, log)

	var queue service.Outbox
	if cfg.OutboxEnabled {
		queue = outbox.NewRedisPublisher(redisClient, cfg.OutboxKey, cfg.OutboxMaxSize)
	}

	// Инициализация сервисов
	gateway := service.NewPersistenceGateway(store, cache, feed, queue, service.GatewayConfig{
		LoadLimit:    cfg.LoadLimit,
		ClearWindow:  cfg.ClearWindow,
		StoreTimeout: cfg.StoreTimeout,
	}, log)

	det := detector.New(detector.Config{
		MinPreviousKmh: cfg.DetectorMinPreviousKmh,
		MinDropKmh:     cfg.DetectorMinDropKmh,
		NearStopKmh:    cfg.DetectorNearStopKmh,
		Window:         cfg.DetectorWindow,
	}, log)

	controller := service.NewMonitoringController(source, gateway, det, service.ControllerConfig{
		NativeTimeout:           cfg.GeoNativeTimeout,
		WebTimeout:              cfg.GeoWebTimeout,
		HapticPulse:             cfg.HapticPulse,
		ProximityIndexThreshold: cfg.ProximityIndexThreshold,
	}, log)
	if err := controller.Init(ctx); err != nil {
		return fmt.Errorf("failed to init monitoring controller: %w", err)
	}

	// Инициализация хэндлеров
	handler := v1.NewHandler(controller, webSource, log, cfg)
	handler.AddHealthCheck("postgres", dbpool.Ping)
	handler.AddHealthCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if mqttClient != nil {
		handler.AddHealthCheck("mqtt", func(context.Context) error {
			if !mqttClient.IsConnectionOpen() {
				return errors.New("connection lost")
			}
			return nil
		})
	}

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("HTTP server started on port %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting HTTP server: %w", err)
		}
		return nil
	})

	if cfg.OutboxEnabled {
		worker := outbox.NewWorker(redisClient, store, func(b *models.SpeedBump) {
			controller.Merge(gctx, b)
		}, outbox.WorkerConfig{
			Key:         cfg.OutboxKey,
			MaxRetries:  cfg.OutboxMaxRetries,
			BaseDelay:   cfg.OutboxBaseDelay,
			MaxAttempts: cfg.OutboxMaxAttempts,
		}, log)
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Received shutdown signal, shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := controller.Close(); err != nil {
			log.WithError(err).Warn("Failed to close monitoring controller")
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server gracefully stopped")
	return nil
}
