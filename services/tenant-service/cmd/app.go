package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"TenancyPlatform/pkg/config"
	"TenancyPlatform/pkg/connection"
	"TenancyPlatform/pkg/database"
	"TenancyPlatform/pkg/health"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/pkg/rabbitmq"
	pkg_redis "TenancyPlatform/pkg/redis"
	"TenancyPlatform/services/tenant-service/internal/lock"
	"TenancyPlatform/services/tenant-service/internal/migration"
	"TenancyPlatform/services/tenant-service/internal/repository"
	"TenancyPlatform/services/tenant-service/internal/repository/postgres"
	"TenancyPlatform/services/tenant-service/internal/service"
	"TenancyPlatform/services/tenant-service/internal/session"
	"TenancyPlatform/services/tenant-service/migrations"
)

// app общие зависимости всех команд
type app struct {
	cfg      *config.Config
	log      logger.Logger
	db       *database.Postgres
	metrics  *metrics.Metrics
	stores   repository.StoreFactory
	sessions *session.Provider
	closers  []func()
}

// newApp загружает конфигурацию, создает логгер и подключается к базе
func newApp(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := config.LoadConfig(v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level := v.GetString("log-level"); level != "" {
		cfg.Logger.Level = level
	}

	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     appLogger,
		metrics: metrics.NewMetrics(metricsNamespace, nil),
		stores:  postgres.NewStoreFactory(cfg.Tenancy.SharedSchema),
	}

	dbConfig := database.FromAppConfig(cfg.Database)
	var db *database.Postgres
	err = connection.WithRetry(ctx, connection.DefaultRetryConfig(), appLogger, "database_connect", func(ctx context.Context) error {
		var err error
		db, err = database.Connect(ctx, dbConfig)
		return err
	})
	if err != nil {
		appLogger.Error("Failed to connect to database", logger.Error(err))
		_ = appLogger.Sync()
		return nil, err
	}
	a.onClose(db.Close)

	a.db = db
	a.sessions = session.NewProvider(db.Pool, cfg.Tenancy.SharedSchema, a.metrics, appLogger)

	appLogger.Info("Database connected",
		logger.String("shared_schema", cfg.Tenancy.SharedSchema),
		logger.String("environment", cfg.Environment))
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close освобождает ресурсы в обратном порядке
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

// connectRedis возвращает nil, если Redis выключен
func (a *app) connectRedis(ctx context.Context) (*pkg_redis.Client, error) {
	if !a.cfg.Redis.Enabled {
		return nil, nil
	}

	client, err := pkg_redis.Connect(ctx, pkg_redis.FromAppConfig(a.cfg.Redis))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.onClose(func() { _ = client.Close() })

	a.log.Info("Redis connected", logger.String("addr", a.cfg.Redis.Addr))
	return client, nil
}

// connectRabbitMQ возвращает nil, если RabbitMQ выключен
func (a *app) connectRabbitMQ(ctx context.Context) (*rabbitmq.Connection, *rabbitmq.Config, error) {
	if !a.cfg.RabbitMQ.Enabled {
		return nil, nil, nil
	}

	rabbitConfig := rabbitmq.NewConfig()
	rabbitConfig.URL = a.cfg.RabbitMQ.URL
	rabbitConfig.Exchange = a.cfg.RabbitMQ.Exchange
	rabbitConfig.RoutingKey = a.cfg.RabbitMQ.RoutingKey
	rabbitConfig.Queue = a.cfg.RabbitMQ.Queue

	conn, err := rabbitmq.Connect(ctx, rabbitConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	a.onClose(func() { _ = conn.Close() })

	a.log.Info("RabbitMQ connected",
		logger.String("exchange", rabbitConfig.Exchange),
		logger.String("queue", rabbitConfig.Queue))
	return conn, rabbitConfig, nil
}

// tenantService создает сервис каталога; locker и publisher могут быть nil
func (a *app) tenantService(locker lock.Locker, publisher migration.Publisher) *service.TenantService {
	return service.NewTenantService(
		a.sessions,
		a.stores,
		a.db.Pool,
		a.cfg.Tenancy.SharedSchema,
		locker,
		a.cfg.Tenancy.ProvisionLockTTL,
		publisher,
		a.metrics,
		a.log,
	)
}

// orchestrator создает goose runner и оркестратор пакетных миграций
func (a *app) orchestrator() (*migration.Orchestrator, migration.Runner, error) {
	connString := database.FromAppConfig(a.cfg.Database).ConnString()
	runner, err := migration.NewGooseRunner(connString, a.cfg.Tenancy.SharedSchema, migrations.FS, a.log)
	if err != nil {
		return nil, nil, err
	}

	retry := connection.DefaultRetryConfig()
	retry.MaxAttempts = a.cfg.Migrations.MaxAttempts

	orch := migration.NewOrchestrator(
		runner,
		a.tenantService(nil, nil),
		a.cfg.Migrations.Workers,
		a.cfg.Migrations.Timeout,
		retry,
		a.metrics,
		a.log,
	)
	return orch, runner, nil
}

// healthChecker регистрирует проверки подключенных зависимостей
func (a *app) healthChecker(redisClient *pkg_redis.Client, rabbitConn *rabbitmq.Connection) *health.ProbeChecker {
	checker := health.NewProbeChecker(serviceVersion, 0)
	checker.Register("database", a.db.HealthCheck)
	if redisClient != nil {
		checker.Register("redis", redisClient.HealthCheck)
	}
	if rabbitConn != nil {
		checker.Register("rabbitmq", rabbitConn.HealthCheck)
	}
	return checker
}
