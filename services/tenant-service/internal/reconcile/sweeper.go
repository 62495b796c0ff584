package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/repository"
	"TenancyPlatform/services/tenant-service/internal/session"
)

// Report результат одной сверки каталога с базой
type Report struct {
	CheckedAt time.Time
	Tenants   int
	// Missing записи каталога, для которых схема не существует
	Missing []*domain.Tenant
}

// Consistent сообщает, что расхождений не найдено
func (r Report) Consistent() bool {
	return len(r.Missing) == 0
}

// Sweeper сверяет каталог арендаторов со схемами базы.
// Состояние не меняет: только сообщает о расхождениях.
type Sweeper struct {
	sessions session.Runner
	stores   repository.StoreFactory
	metrics  *metrics.Metrics
	logger   logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper создает новый экземпляр Sweeper
func NewSweeper(sessions session.Runner, stores repository.StoreFactory, m *metrics.Metrics, log logger.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		stores:   stores,
		metrics:  m,
		logger:   log,
	}
}

// Run выполняет одну сверку
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	ctx, span := s.metrics.StartSpan(ctx, "reconcile.sweep")
	defer span.End()

	report := Report{CheckedAt: time.Now().UTC()}

	var (
		tenants []*domain.Tenant
		schemas []string
	)
	err := s.sessions.Shared(ctx, func(ctx context.Context, db database.DBTX) error {
		store := s.stores(db)

		var err error
		if tenants, err = store.Tenants().ListAll(ctx); err != nil {
			return err
		}
		schemas, err = store.Schemas().ListSchemas(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("Reconciliation sweep failed", logger.CtxField(ctx), logger.Error(err))
		return report, fmt.Errorf("reconcile: %w", err)
	}

	existing := make(map[string]struct{}, len(schemas))
	for _, name := range schemas {
		existing[name] = struct{}{}
	}

	report.Tenants = len(tenants)
	for _, t := range tenants {
		if _, ok := existing[t.SchemaName]; ok {
			continue
		}
		report.Missing = append(report.Missing, t)
		s.logger.Error("ALERT: tenant schema missing",
			logger.CtxField(ctx),
			logger.Int64("tenant_id", t.ID),
			logger.String("tenant_name", t.Name),
			logger.String("schema_name", t.SchemaName),
			logger.Bool("is_active", t.IsActive),
		)
	}

	s.metrics.SetMissingSchemas(len(report.Missing))
	s.logger.Info("Reconciliation sweep completed",
		logger.CtxField(ctx),
		logger.Int("tenants", report.Tenants),
		logger.Int("schemas", len(schemas)),
		logger.Int("missing", len(report.Missing)),
	)
	return report, nil
}

// Start запускает сверку по расписанию cron
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		_, _ = s.Run(ctx)
	}); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	c.Start()
	s.cron = c
	s.running = true

	s.logger.Info("Reconciliation scheduler started", logger.String("schedule", schedule))
	return nil
}

// Stop останавливает планировщик и ждет завершения текущей сверки
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Reconciliation scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Reconciliation scheduler stop timed out", logger.Error(ctx.Err()))
	}
	s.running = false
}

// IsRunning проверяет, запущен ли планировщик
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
