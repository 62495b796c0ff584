package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Metrics представляет систему метрик сервиса арендаторов
type Metrics struct {
	// HTTP
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsCount     *prometheus.CounterVec

	// Арендаторы
	TenantResolutions *prometheus.CounterVec
	Sessions          *prometheus.CounterVec
	SessionDuration   *prometheus.HistogramVec
	Provisioning      *prometheus.CounterVec
	Migrations        *prometheus.CounterVec
	MissingSchemas    prometheus.Gauge

	gatherer prometheus.Gatherer

	// OpenTelemetry Tracer
	Tracer trace.Tracer `json:"-"`
}

// NewMetrics создает метрики и регистрирует их в reg.
// nil означает глобальный реестр Prometheus.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		RequestCount: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"})),
		RequestDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})),
		ErrorsCount: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "route", "error_type"})),
		TenantResolutions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "resolutions_total",
			Help:      "Tenant resolution outcomes",
		}, []string{"outcome"})),
		Sessions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "sessions_total",
			Help:      "Scoped database sessions by kind and outcome",
		}, []string{"kind", "outcome"})),
		SessionDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "session_duration_seconds",
			Help:      "Lifetime of scoped database sessions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"})),
		Provisioning: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "provisioning_total",
			Help:      "Tenant provisioning outcomes",
		}, []string{"outcome"})),
		Migrations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "migrations_total",
			Help:      "Schema migration runs by target and outcome",
		}, []string{"target", "outcome"})),
		MissingSchemas: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tenancy",
			Name:      "missing_schemas",
			Help:      "Directory entries whose schema does not exist, as of the last reconciliation",
		})),
		gatherer: gatherer,
		Tracer:   otel.Tracer(namespace),
	}

	return m
}

// register регистрирует коллектор; при повторной регистрации возвращает уже существующий
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// GetHandler возвращает HTTP обработчик для эндпоинта /metrics
func (m *Metrics) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware создает middleware для сбора метрик и трассировки
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.Tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		duration := time.Since(start).Seconds()
		route := routePattern(r)

		m.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(duration)

		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
			}
			m.ErrorsCount.WithLabelValues(r.Method, route, errorType).Inc()
		}

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", wrapped.statusCode),
			attribute.Float64("http.duration", duration),
		)
	})
}

// routePattern возвращает шаблон маршрута chi, чтобы id не раздували кардинальность
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// ObserveResolution учитывает исход разрешения арендатора
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.TenantResolutions.WithLabelValues(outcome).Inc()
}

// ObserveSession учитывает завершение сессии
func (m *Metrics) ObserveSession(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(kind, outcome).Inc()
	m.SessionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveProvisioning учитывает исход создания арендатора
func (m *Metrics) ObserveProvisioning(outcome string) {
	if m == nil {
		return
	}
	m.Provisioning.WithLabelValues(outcome).Inc()
}

// ObserveMigration учитывает запуск миграции
func (m *Metrics) ObserveMigration(target, outcome string) {
	if m == nil {
		return
	}
	m.Migrations.WithLabelValues(target, outcome).Inc()
}

// SetMissingSchemas фиксирует результат последней сверки
func (m *Metrics) SetMissingSchemas(n int) {
	if m == nil {
		return
	}
	m.MissingSchemas.Set(float64(n))
}

// StartSpan открывает спан; безопасен для nil
func (m *Metrics) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("tenancy")
	if m != nil && m.Tracer != nil {
		tracer = m.Tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// InitializeOpenTelemetry устанавливает глобальный провайдер трассировки.
// Возвращает функцию остановки провайдера.
func InitializeOpenTelemetry(serviceName, version string) func(context.Context) error {
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.AlwaysSample())),
		tracesdk.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown
}
