package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	gogrpc "google.golang.org/grpc"

	"TenancyPlatform/pkg/config"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/pkg/rabbitmq"
	"TenancyPlatform/pkg/ratelimit"
	grpchandler "TenancyPlatform/services/tenant-service/internal/handler/grpc"
	httphandler "TenancyPlatform/services/tenant-service/internal/handler/http"
	"TenancyPlatform/services/tenant-service/internal/lock"
	"TenancyPlatform/services/tenant-service/internal/middleware"
	"TenancyPlatform/services/tenant-service/internal/migration"
	"TenancyPlatform/services/tenant-service/internal/reconcile"
	"TenancyPlatform/services/tenant-service/internal/repository/postgres"
	"TenancyPlatform/services/tenant-service/internal/service"
)

const grpcHealthInterval = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with gRPC health and scheduled reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	shutdownTracing := metrics.InitializeOpenTelemetry(serviceName, serviceVersion)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			a.log.Warn("Failed to shutdown tracer provider", logger.Error(err))
		}
	}()

	a.log.Info("Starting tenant service",
		logger.String("version", serviceVersion),
		logger.String("service", serviceName))

	// Redis: блокировка провижининга и rate limiting
	redisClient, err := a.connectRedis(ctx)
	if err != nil {
		return err
	}
	var (
		locker  lock.Locker = lock.NoopLocker{}
		limiter ratelimit.RateLimiter
	)
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient.Client)
		if cfg.RateLimiting.Enabled {
			limiter = ratelimit.NewRedisRateLimiter(redisClient.Client)
		}
	} else if cfg.RateLimiting.Enabled {
		a.log.Warn("Rate limiting requires redis, disabled")
	}

	// RabbitMQ: запросы на миграцию новых схем
	rabbitConn, rabbitConfig, err := a.connectRabbitMQ(ctx)
	if err != nil {
		return err
	}
	var publisher migration.Publisher
	if rabbitConn != nil {
		publisher = migration.NewRabbitPublisher(rabbitmq.NewProducer(rabbitConn, rabbitConfig))
	}

	tenantService := a.tenantService(locker, publisher)
	itemService := service.NewItemService(a.sessions, a.stores)
	resolver := middleware.NewTenantResolver(
		postgres.NewTenantRepository(a.db.Pool, cfg.Tenancy.SharedSchema),
		cfg.Tenancy,
		a.metrics,
		a.log,
	)
	checker := a.healthChecker(redisClient, rabbitConn)

	handler := httphandler.NewHandler(httphandler.Options{
		Tenants:           tenantService,
		Items:             itemService,
		Resolver:          resolver,
		AdminHeader:       cfg.Tenancy.AdminHeader,
		AdminAPIKey:       cfg.Tenancy.AdminAPIKey,
		RateLimiter:       limiter,
		RequestsPerMinute: cfg.RateLimiting.RequestsPerMinute,
		Health:            checker,
		Metrics:           a.metrics,
		Version:           serviceVersion,
		Logger:            a.log,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	httpLis, grpcLis, err := openListeners(cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Reconcile.Enabled {
		sweeper := reconcile.NewSweeper(a.sessions, a.stores, a.metrics, a.log)
		if err := sweeper.Start(gctx, cfg.Reconcile.Schedule); err != nil {
			closeListeners(httpLis, grpcLis)
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			sweeper.Stop(stopCtx)
		}()
	}

	g.Go(func() error {
		a.log.Info("Starting HTTP server", logger.String("address", httpLis.Addr().String()))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	var grpcServer *gogrpc.Server
	if grpcLis != nil {
		grpcServer = gogrpc.NewServer()
		reporter := grpchandler.NewHealthReporter(checker, grpcHealthInterval, a.log)
		reporter.Register(grpcServer)

		g.Go(func() error {
			reporter.Run(gctx)
			return nil
		})
		g.Go(func() error {
			a.log.Info("Starting gRPC health server", logger.String("address", grpcLis.Addr().String()))
			if err := grpcServer.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc server failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Error("HTTP server shutdown failed", logger.Error(err))
			_ = httpServer.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.log.Error("Tenant service stopped with error", logger.Error(err))
		return err
	}
	a.log.Info("Tenant service stopped")
	return nil
}

// openListeners открывает HTTP и, если включен, gRPC порт до запуска серверов.
// При ошибке уже открытые порты закрываются.
func openListeners(cfg *config.Config) (httpLis, grpcLis net.Listener, err error) {
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpLis, err = net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
	}

	if !cfg.GRPC.Enabled {
		return httpLis, nil, nil
	}

	grpcLis, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		_ = httpLis.Close()
		return nil, nil, fmt.Errorf("failed to listen on gRPC port %d: %w", cfg.GRPC.Port, err)
	}
	return httpLis, grpcLis, nil
}

func closeListeners(listeners ...net.Listener) {
	for _, lis := range listeners {
		if lis != nil {
			_ = lis.Close()
		}
	}
}
