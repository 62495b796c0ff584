package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"TenancyPlatform/pkg/connection"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/pkg/validation"
)

// Summary итог пакетного запуска миграций
type Summary struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// FailedSchemas возвращает отсортированный список схем с ошибкой
func (s Summary) FailedSchemas() []string {
	out := make([]string, 0, len(s.Failures))
	for schema := range s.Failures {
		out = append(out, schema)
	}
	sort.Strings(out)
	return out
}

// Orchestrator мигрирует общую схему, затем все активные схемы арендаторов
type Orchestrator struct {
	runner    Runner
	source    SchemaSource
	workers   int
	timeout   time.Duration
	retry     connection.RetryConfig
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewOrchestrator создает Orchestrator
func NewOrchestrator(runner Runner, source SchemaSource, workers int, timeout time.Duration, retry connection.RetryConfig, m *metrics.Metrics, log logger.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		runner:    runner,
		source:    source,
		workers:   workers,
		timeout:   timeout,
		retry:     retry,
		validator: validation.NewValidator(),
		metrics:   m,
		logger:    log,
	}
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

// RunAll выполняет пакетную миграцию. Ошибка общей схемы прерывает запуск;
// ошибка одной схемы арендатора не влияет на остальные.
// При workers=1 схемы мигрируются строго по очереди в порядке каталога.
func (o *Orchestrator) RunAll(ctx context.Context) (Summary, error) {
	summary := Summary{Failures: map[string]string{}}

	o.logger.Info("Applying shared schema migrations")
	sharedCtx, cancel := o.withTimeout(ctx)
	err := o.runner.ApplyShared(sharedCtx)
	cancel()
	if err != nil {
		o.metrics.ObserveMigration(string(ModelSetShared), "failure")
		o.logger.Error("Shared schema migration failed, tenant schemas skipped", logger.Error(err))
		return summary, fmt.Errorf("shared schema migration failed: %w", err)
	}
	o.metrics.ObserveMigration(string(ModelSetShared), "success")

	schemas, err := o.source.ActiveSchemas(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list active tenant schemas: %w", err)
	}
	if len(schemas) == 0 {
		o.logger.Error("No active tenant schemas found")
		return summary, nil
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.workers)

	for _, schema := range schemas {
		g.Go(func() error {
			err := o.RunOne(ctx, schema)

			mu.Lock()
			defer mu.Unlock()
			summary.Total++
			if err != nil {
				summary.Failed++
				summary.Failures[schema] = err.Error()
			} else {
				summary.Succeeded++
			}
			return nil
		})
	}
	_ = g.Wait()

	fields := []logger.Field{
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("failed", summary.Failed),
		logger.Int("total", summary.Total),
	}
	if summary.Failed > 0 {
		o.logger.Warn("Tenant migrations finished with failures",
			append(fields, logger.Strings("failed_schemas", summary.FailedSchemas()))...)
	} else {
		o.logger.Info("Tenant migrations finished", fields...)
	}

	return summary, nil
}

// RunOne мигрирует одну схему арендатора с повторами
func (o *Orchestrator) RunOne(ctx context.Context, schema string) error {
	if err := o.validator.ValidateIdentifier(schema, "schema_name"); err != nil {
		o.metrics.ObserveMigration(string(ModelSetTenant), "invalid")
		o.logger.Error("Skipping schema with invalid name", logger.String("schema", schema), logger.Error(err))
		return err
	}

	err := connection.WithRetry(ctx, o.retry, o.logger, "migrate "+schema, func(ctx context.Context) error {
		runCtx, cancel := o.withTimeout(ctx)
		defer cancel()
		return o.runner.ApplyTenant(runCtx, schema)
	})
	if err != nil {
		o.metrics.ObserveMigration(string(ModelSetTenant), "failure")
		o.logger.Error("Tenant schema migration failed", logger.String("schema", schema), logger.Error(err))
		return err
	}

	o.metrics.ObserveMigration(string(ModelSetTenant), "success")
	return nil
}
