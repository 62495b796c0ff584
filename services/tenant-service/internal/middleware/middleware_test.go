package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/mocks"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		configured string
		wantStatus int
	}{
		{"valid key", "s3cret", "s3cret", http.StatusOK},
		{"wrong key", "guess", "s3cret", http.StatusForbidden},
		{"missing key", "", "s3cret", http.StatusForbidden},
		{"empty configured key never matches", "", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AdminKeyMiddleware("X-Admin-Key", tt.configured, mocks.NewMockLogger())(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/tenants", nil)
			if tt.key != "" {
				req.Header.Set("X-Admin-Key", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "Invalid Admin API Key")
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := logger.NewFromZap(zap.New(core))

	var traceID string
	handler := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = logger.TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users", nil))

	assert.NotEmpty(t, traceID)
	assert.Equal(t, traceID, w.Header().Get(RequestIDHeader))
	assert.Equal(t, 1, logs.FilterMessage("Started request").Len())

	completed := logs.FilterMessage("Completed request").All()
	if assert.Len(t, completed, 1) {
		assert.Equal(t, int64(http.StatusCreated), completed[0].ContextMap()["status_code"])
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	handler := LoggingMiddleware(logger.NewNop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	log := mocks.NewMockLogger()
	handler := RecoveryMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "boom")
	assert.Contains(t, log.Messages("Error"), "Panic recovered in HTTP handler")
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    bool
		err        error
		wantStatus int
	}{
		{"within limit", true, nil, http.StatusOK},
		{"limit exceeded", false, nil, http.StatusTooManyRequests},
		{"limiter failure fails open", false, errors.New("redis down"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := new(mocks.MockRateLimiter)
			limiter.On("Allow", mock.Anything, "ip:192.0.2.1", 100, time.Minute).Return(tt.allowed, tt.err)

			handler := RateLimitMiddleware(limiter, 100, mocks.NewMockLogger())(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusTooManyRequests {
				assert.Equal(t, "60", w.Header().Get("Retry-After"))
			}
			limiter.AssertExpectations(t)
		})
	}
}
