package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"TenancyPlatform/pkg/logger"
)

// Consumer представляет консьюмера сообщений
type Consumer struct {
	conn     *Connection
	config   *Config
	log      logger.Logger
	handlers map[string]MessageHandler
}

// MessageHandler функция для обработки сообщения
type MessageHandler func(context.Context, amqp091.Delivery) error

// NewConsumer создает нового консьюмера
func NewConsumer(conn *Connection, config *Config, log logger.Logger) *Consumer {
	return &Consumer{
		conn:     conn,
		config:   config,
		log:      log,
		handlers: make(map[string]MessageHandler),
	}
}

// RegisterHandler регистрирует обработчик для конкретной очереди
func (c *Consumer) RegisterHandler(queueName string, handler MessageHandler) {
	c.handlers[queueName] = handler
}

// Start запускает консьюмера для всех зарегистрированных очередей и блокируется до отмены ctx
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	for queueName, handler := range c.handlers {
		go func(queue string, h MessageHandler) {
			for {
				err := c.consume(ctx, queue, h)
				if ctx.Err() != nil {
					return
				}
				c.log.Error("Consumer stopped, restarting",
					logger.String("queue", queue),
					logger.Error(err),
					logger.Duration("retry_in", c.config.ReconnectInterval))

				select {
				case <-ctx.Done():
					return
				case <-time.After(c.config.ReconnectInterval):
				}
			}
		}(queueName, handler)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	if c.conn == nil || c.conn.Channel() == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	msgs, err := c.conn.Channel().ConsumeWithContext(ctx,
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	for msg := range msgs {
		c.handle(ctx, msg, handler)
	}

	return fmt.Errorf("consumer channel closed")
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery, handler MessageHandler) {
	msgCtx, cancel := context.WithTimeout(ctx, c.config.HandlerTimeout)
	defer cancel()

	if err := handler(msgCtx, msg); err != nil {
		requeue := ShouldRequeue(msg, c.config.MaxDeliveryAttempts)
		c.log.Warn("Message handling failed",
			logger.String("message_id", msg.MessageId),
			logger.Bool("requeue", requeue),
			logger.Error(err))
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			c.log.Error("Failed to nack message", logger.Int64("delivery_tag", int64(msg.DeliveryTag)), logger.Error(nackErr))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.log.Error("Failed to ack message", logger.Int64("delivery_tag", int64(msg.DeliveryTag)), logger.Error(err))
	}
}

// ShouldRequeue решает, вернуть ли сообщение в очередь или отправить в DLQ.
// Повторно доставленное сообщение в очередь не возвращается.
func ShouldRequeue(msg amqp091.Delivery, maxAttempts int) bool {
	if msg.Redelivered {
		return false
	}
	attempts := 1
	if xDeath, ok := msg.Headers["x-death"].([]interface{}); ok {
		for _, entry := range xDeath {
			if table, ok := entry.(amqp091.Table); ok {
				if count, ok := table["count"].(int64); ok {
					attempts += int(count)
				}
			}
		}
	}
	return attempts < maxAttempts
}
