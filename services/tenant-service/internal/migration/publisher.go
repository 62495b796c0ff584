package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rabbitmq/amqp091-go"

	"TenancyPlatform/pkg/rabbitmq"
	"TenancyPlatform/services/tenant-service/internal/domain"
)

// Publisher ставит запрос на миграцию новой схемы в очередь
type Publisher interface {
	PublishMigrationRequest(ctx context.Context, req domain.MigrationRequest) error
}

// MessageProducer публикует сообщения; *rabbitmq.Producer удовлетворяет интерфейсу
type MessageProducer interface {
	Publish(ctx context.Context, body []byte, options ...rabbitmq.PublishOption) error
}

// RabbitPublisher публикует MigrationRequest в RabbitMQ
type RabbitPublisher struct {
	producer MessageProducer
}

// NewRabbitPublisher создает RabbitPublisher
func NewRabbitPublisher(producer MessageProducer) *RabbitPublisher {
	return &RabbitPublisher{producer: producer}
}

// PublishMigrationRequest сериализует запрос в JSON и публикует его
func (p *RabbitPublisher) PublishMigrationRequest(ctx context.Context, req domain.MigrationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal migration request: %w", err)
	}

	return p.producer.Publish(ctx, body,
		rabbitmq.WithMessageID(req.ID),
		rabbitmq.WithHeaders(amqp091.Table{
			"tenant_id":   strconv.FormatInt(req.TenantID, 10),
			"schema_name": req.SchemaName,
		}),
	)
}
