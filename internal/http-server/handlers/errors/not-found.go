package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"tiergate/lib/api/response"
	"tiergate/lib/sl"
)

// NotFound answers API clients with the JSON envelope and sends browsers
// back to the site root.
func NotFound(log *slog.Logger) http.HandlerFunc {
	mod := sl.Module("http.handlers.errors")

	return func(w http.ResponseWriter, r *http.Request) {
		log.With(mod, slog.String("path", r.URL.Path)).Debug("not found")

		if !wantsJSON(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("Requested resource not found"))
	}
}
