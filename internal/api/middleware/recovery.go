package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kiranshivaraju/kafkaops/internal/api/response"
)

// Recovery turns a handler panic into a 500 carrying the request ID so the
// caller can quote it when reporting the failure. http.ErrAbortHandler is
// re-raised for net/http to handle.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			reqID := chimw.GetReqID(r.Context())
			slog.Error("panic recovered",
				"error", rvr,
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
			)

			var details any
			if reqID != "" {
				details = map[string]string{"request_id": reqID}
			}
			response.Error(w, http.StatusInternalServerError,
				response.CodeInternal, "An unexpected error occurred", details)
		}()
		next.ServeHTTP(w, r)
	})
}
