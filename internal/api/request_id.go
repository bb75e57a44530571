package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"courtreel/internal/services"
)

// requestIDMiddleware tags every request with a correlation identifier.
// Inbound X-Request-ID headers are honored so callers can trace their own
// requests through the logs; otherwise a fresh one is generated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
