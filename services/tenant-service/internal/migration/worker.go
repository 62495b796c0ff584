package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/services/tenant-service/internal/domain"
)

// Worker обрабатывает запросы на миграцию из очереди
type Worker struct {
	orchestrator *Orchestrator
	logger       logger.Logger
}

// NewWorker создает Worker
func NewWorker(orchestrator *Orchestrator, log logger.Logger) *Worker {
	return &Worker{orchestrator: orchestrator, logger: log}
}

// Handle реализует rabbitmq.MessageHandler
func (w *Worker) Handle(ctx context.Context, msg amqp091.Delivery) error {
	var req domain.MigrationRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		return fmt.Errorf("failed to decode migration request: %w", err)
	}
	if req.SchemaName == "" {
		return fmt.Errorf("migration request %s has no schema_name", req.ID)
	}

	w.logger.Info("Migration request received",
		logger.String("request_id", req.ID),
		logger.Int64("tenant_id", req.TenantID),
		logger.String("schema", req.SchemaName),
	)

	return w.orchestrator.RunOne(ctx, req.SchemaName)
}
