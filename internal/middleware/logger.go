package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"polycycle/internal/logging"
)

// RequestLogger logs every request and injects a request-scoped logger into
// the context.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)

			l := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
			)
			r = r.WithContext(logging.WithCtx(r.Context(), l))

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []any{"status", rec.status, "dur_ms", time.Since(start).Milliseconds()}
			if rec.status >= http.StatusBadRequest {
				l.Error("http_request", attrs...)
				return
			}
			l.Info("http_request", attrs...)
		})
	}
}
