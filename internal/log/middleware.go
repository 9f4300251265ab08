package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware attaches a request-scoped logger to the context and logs each
// request once it completes.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	httpLogger := logger.WithComponent(ComponentHTTP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := httpLogger.With(FieldRequestID, middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(NewContext(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			args := []any{
				FieldMethod, r.Method,
				FieldOperation, operationFor(r.Method),
				FieldPath, r.URL.Path,
				FieldStatusCode, status,
				FieldDuration, time.Since(start).Milliseconds(),
				FieldBytes, ww.BytesWritten(),
				FieldClientIP, r.RemoteAddr,
			}
			switch {
			case status >= 500:
				reqLogger.ErrorContext(r.Context(), "request failed", args...)
			case status >= 400:
				reqLogger.WarnContext(r.Context(), "request rejected", args...)
			default:
				reqLogger.InfoContext(r.Context(), "request completed", args...)
			}
		})
	}
}

// operationFor names the kind of work an HTTP method asks for.
func operationFor(method string) string {
	switch method {
	case http.MethodPost:
		return OpCreate
	case http.MethodPut, http.MethodPatch:
		return OpUpdate
	case http.MethodDelete:
		return OpDelete
	default:
		return OpRead
	}
}
