package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError проверяет создание новой ошибки
func TestNewError(t *testing.T) {
	e := New(ErrNotFound, "resource not found")
	require.NotNil(t, e)
	assert.Equal(t, ErrNotFound, e.Code)
	assert.Equal(t, "resource not found", e.Message)
	assert.Nil(t, e.Cause)

	f := Newf(ErrDuplicate, "Subdomain '%s' already registered.", "acme")
	assert.Equal(t, "Subdomain 'acme' already registered.", f.Message)
}

// TestWrapError проверяет оборачивание существующей ошибки
func TestWrapError(t *testing.T) {
	originalErr := fmt.Errorf("database error")
	e := Wrap(originalErr, ErrInternal, "failed to save resource")

	require.NotNil(t, e)
	assert.Equal(t, ErrInternal, e.Code)
	assert.Equal(t, "failed to save resource: database error", e.Error())
	assert.True(t, stderrors.Is(e, originalErr))

	assert.Nil(t, Wrap(nil, ErrInternal, "nothing"))
}

// TestWithDetailsAndContext проверяет, что исходная ошибка не меняется
func TestWithDetailsAndContext(t *testing.T) {
	e := New(ErrValidation, "invalid input")
	withDetails := e.WithDetails("field 'name' is required")
	withCtx := withDetails.WithContext(context.Background())

	assert.Equal(t, "field 'name' is required", withDetails.Details)
	assert.Equal(t, "", e.Details)
	assert.NotNil(t, withCtx.Context)
	assert.Nil(t, withDetails.Context)

	var nilErr *Error
	assert.Nil(t, nilErr.WithDetails("x"))
	assert.Nil(t, nilErr.WithContext(context.Background()))
}

// TestErrorIs проверяет сравнение по коду
func TestErrorIs(t *testing.T) {
	e := New(ErrNotFound, "resource not found")
	assert.True(t, stderrors.Is(e, New(ErrNotFound, "another message")))
	assert.False(t, stderrors.Is(e, New(ErrInternal, "internal error")))

	wrapped := fmt.Errorf("outer: %w", e)
	assert.True(t, stderrors.Is(wrapped, New(ErrNotFound, "")))
}

// TestAsAndCodeOf проверяет классификацию ошибок в цепочке
func TestAsAndCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", New(ErrDuplicate, "dup"))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrDuplicate, e.Code)
	assert.Equal(t, ErrDuplicate, CodeOf(wrapped))

	_, ok = As(fs.ErrNotExist)
	assert.False(t, ok)
	assert.Equal(t, ErrorCode(""), CodeOf(fs.ErrNotExist))
}

// TestHTTPStatus проверяет соответствие HTTP статусов
func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrBadRequest, http.StatusBadRequest},
		{ErrDuplicate, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{ErrTooManyRequests, http.StatusTooManyRequests},
		{ErrInternal, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.expected, New(tc.code, "test message").HTTPStatus())
		})
	}
}

type customErr struct{}

func (customErr) Error() string { return "secret connection string leaked" }

// TestWriteHTTP проверяет формат ответа на границе HTTP
func TestWriteHTTP(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    ErrorCode
		wantMessage string
	}{
		{
			name:        "classified error keeps its status",
			err:         New(ErrForbidden, "Invalid Admin API Key"),
			wantStatus:  http.StatusForbidden,
			wantCode:    ErrForbidden,
			wantMessage: "Invalid Admin API Key",
		},
		{
			name:        "wrapped classified error",
			err:         fmt.Errorf("create: %w", New(ErrDuplicate, "Schema name 'acme' already exists or is planned.")),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrDuplicate,
			wantMessage: "Schema name 'acme' already exists or is planned.",
		},
		{
			name:        "unclassified error exposes only the type tag",
			err:         customErr{},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrInternal,
			wantMessage: "Internal server error: errors.customErr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			status := WriteHTTP(w, tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp errorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.NotContains(t, w.Body.String(), "secret")
		})
	}
}

// TestWriteHTTP_InternalHidesDetails проверяет, что детали 500 не уходят клиенту
func TestWriteHTTP_InternalHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTTP(w, New(ErrInternal, "failed to create schema").WithDetails("permission denied for database"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "permission denied")
}
