package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/rabbitmq"
	"TenancyPlatform/services/tenant-service/internal/migration"
)

func newWorkerCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume migration requests for newly provisioned schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.close()

			if !a.cfg.RabbitMQ.Enabled {
				return errors.New("worker requires rabbitmq.enabled")
			}
			conn, rabbitConfig, err := a.connectRabbitMQ(ctx)
			if err != nil {
				return err
			}

			orch, _, err := a.orchestrator()
			if err != nil {
				return err
			}
			worker := migration.NewWorker(orch, a.log)

			consumer := rabbitmq.NewConsumer(conn, rabbitConfig, a.log)
			consumer.RegisterHandler(rabbitConfig.Queue, worker.Handle)

			a.log.Info("Starting migration worker", logger.String("queue", rabbitConfig.Queue))
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Info("Migration worker stopped")
			return nil
		},
	}
}
