package errors

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"tiergate/lib/api/response"
	"tiergate/lib/sl"
)

func NotAllowed(log *slog.Logger) http.HandlerFunc {
	mod := sl.Module("http.handlers.errors")

	return func(w http.ResponseWriter, r *http.Request) {
		log.With(mod, slog.String("method", r.Method), slog.String("path", r.URL.Path)).Debug("method not allowed")

		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, response.Error("Method not allowed"))
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
