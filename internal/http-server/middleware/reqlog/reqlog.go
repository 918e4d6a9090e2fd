package reqlog

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"tiergate/lib/api/cont"
	"tiergate/lib/sl"
)

// New logs one line per request once the response is written.
func New(log *slog.Logger) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.reqlog")
	log.With(mod).Info("request logger middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", cont.GetClientIP(r.Context())),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			if id != "" {
				ww.Header().Set("X-Request-ID", id)
			}

			t1 := time.Now()
			defer func() {
				logger = logger.With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				)
				if ww.Status() >= http.StatusInternalServerError {
					logger.Warn("incoming request")
					return
				}
				logger.Debug("incoming request")
			}()

			next.ServeHTTP(ww, r)
		}

		return http.HandlerFunc(fn)
	}
}
