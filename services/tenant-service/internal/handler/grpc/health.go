package grpc

import (
	"context"
	"time"

	gogrpc "google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"TenancyPlatform/pkg/health"
	"TenancyPlatform/pkg/logger"
)

// ServiceName имя сервиса в протоколе grpc.health.v1
const ServiceName = "tenant-service"

// HealthReporter транслирует состояние зависимостей в grpc.health.v1
type HealthReporter struct {
	checker  health.HealthChecker
	server   *grpchealth.Server
	interval time.Duration
	logger   logger.Logger
}

// NewHealthReporter создает HealthReporter. До первой проверки сервис NOT_SERVING.
func NewHealthReporter(checker health.HealthChecker, interval time.Duration, log logger.Logger) *HealthReporter {
	server := grpchealth.NewServer()
	server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	server.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthReporter{
		checker:  checker,
		server:   server,
		interval: interval,
		logger:   log,
	}
}

// Register регистрирует health сервис и reflection на gRPC сервере
func (h *HealthReporter) Register(s *gogrpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.server)
	reflection.Register(s)
}

// Server возвращает реализацию grpc_health_v1.HealthServer
func (h *HealthReporter) Server() grpc_health_v1.HealthServer {
	return h.server
}

// Refresh выполняет проверку и обновляет статус
func (h *HealthReporter) Refresh(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	result := h.checker.Check(ctx)
	if !result.Healthy() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("Health probe failed, reporting NOT_SERVING",
			logger.Any("services", result.Services))
	}

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Run периодически обновляет статус до отмены ctx
func (h *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
