package middleware

import (
	"crypto/subtle"
	"net/http"

	"TenancyPlatform/pkg/errors"
	"TenancyPlatform/pkg/logger"
)

// AdminKeyMiddleware пропускает запрос только с верным ключом администратора
func AdminKeyMiddleware(header, apiKey string, log logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(r.Header.Get(header))
			if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
				log.Warn("Invalid admin key",
					logger.CtxField(r.Context()),
					logger.String("path", r.URL.Path),
					logger.String("remote_addr", r.RemoteAddr),
				)
				errors.WriteHTTP(w, errors.New(errors.ErrForbidden, "Invalid Admin API Key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
