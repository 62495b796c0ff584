package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"TenancyPlatform/pkg/errors"
	"TenancyPlatform/pkg/health"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/pkg/ratelimit"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/middleware"
)

// TenantService административные операции с каталогом
type TenantService interface {
	Create(ctx context.Context, in domain.TenantCreate) (*domain.Tenant, error)
	Get(ctx context.Context, id int64) (*domain.Tenant, error)
	List(ctx context.Context, page domain.Page) ([]*domain.Tenant, error)
	Update(ctx context.Context, id int64, patch domain.TenantUpdate) (*domain.Tenant, error)
}

// ItemService операции с данными арендатора
type ItemService interface {
	CreateUser(ctx context.Context, in domain.UserCreate) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context, page domain.Page) ([]*domain.User, error)
	CreateProduct(ctx context.Context, in domain.ProductCreate) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, page domain.Page) ([]*domain.Product, error)
}

// Options зависимости HTTP слоя
type Options struct {
	Tenants     TenantService
	Items       ItemService
	Resolver    *middleware.TenantResolver
	AdminHeader string
	AdminAPIKey string
	// RateLimiter nil отключает ограничение частоты
	RateLimiter       ratelimit.RateLimiter
	RequestsPerMinute int
	Health            health.HealthChecker
	Metrics           *metrics.Metrics
	Version           string
	Logger            logger.Logger
}

// Handler HTTP обработчики сервиса арендаторов
type Handler struct {
	opts   Options
	router chi.Router
	log    logger.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(opts Options) *Handler {
	h := &Handler{opts: opts, log: opts.Logger}
	h.router = h.setupRoutes()
	return h
}

// ServeHTTP реализует интерфейс http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// setupRoutes настраивает маршруты. Порядок middleware важен:
// арендатор разрешается до любого обработчика, использующего сессию.
func (h *Handler) setupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware(h.log))
	r.Use(middleware.LoggingMiddleware(h.log))
	if h.opts.Metrics != nil {
		r.Use(h.opts.Metrics.Middleware)
	}
	r.Use(h.opts.Resolver.Middleware)
	if h.opts.RateLimiter != nil {
		r.Use(middleware.RateLimitMiddleware(h.opts.RateLimiter, h.opts.RequestsPerMinute, h.log))
	}

	r.Get("/", h.handleRoot)
	r.Get("/health", health.Handler(h.opts.Health))
	r.Get("/ready", health.ReadyHandler(h.opts.Health))
	r.Get("/live", health.LiveHandler())
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics.GetHandler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteHTTP(w, errors.New(errors.ErrNotFound, "Not Found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":{"code":"METHOD_NOT_ALLOWED","message":"Method Not Allowed"}}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/admin/tenants", func(r chi.Router) {
			r.Use(middleware.AdminKeyMiddleware(h.opts.AdminHeader, h.opts.AdminAPIKey, h.log))
			r.Post("/", h.handleCreateTenant)
			r.Get("/", h.handleListTenants)
			r.Get("/{id}", h.handleGetTenant)
			r.Patch("/{id}", h.handleUpdateTenant)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.handleCreateUser)
			r.Get("/", h.handleListUsers)
			r.Get("/{id}", h.handleGetUser)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.handleCreateProduct)
			r.Get("/", h.handleListProducts)
			r.Get("/{id}", h.handleGetProduct)
		})
	})

	return r
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the multi-tenant service",
		"version": h.opts.Version,
	})
}

// writeJSON пишет тело ответа в JSON
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", logger.Error(err))
	}
}

// writeError переводит ошибку в HTTP ответ. Неклассифицированные ошибки
// логируются полностью, клиенту уходит только тип.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.WriteHTTP(w, err)
	if status < http.StatusInternalServerError {
		return
	}

	fields := []logger.Field{
		logger.CtxField(r.Context()),
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.Int("status_code", status),
		logger.Error(err),
	}
	if _, ok := errors.As(err); !ok {
		fields = append(fields, logger.String("error_type", errors.TypeTag(err)))
	}
	h.log.Error("Request failed", fields...)
}

// decodeJSON разбирает тело запроса
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New(errors.ErrBadRequest, "Invalid JSON body").WithDetails(err.Error())
	}
	return nil
}

// parseID читает числовой параметр пути
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf(errors.ErrValidation, "invalid id: %s", raw)
	}
	return id, nil
}

// parsePage читает skip и limit из строки запроса
func parsePage(r *http.Request) (domain.Page, error) {
	page := domain.Page{Skip: 0, Limit: domain.DefaultPageLimit}
	q := r.URL.Query()

	if raw := q.Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return page, errors.New(errors.ErrValidation, "skip must be a non-negative integer")
		}
		page.Skip = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > domain.MaxPageLimit {
			return page, errors.Newf(errors.ErrValidation, "limit must be an integer between 0 and %d", domain.MaxPageLimit)
		}
		page.Limit = v
	}
	return page, nil
}
