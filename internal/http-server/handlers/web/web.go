// Package web holds the form and navigation handlers of the server-rendered
// site. Every action ends in a redirect to "/", which renders the view the
// session state selects.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tiergate/entity"
	"tiergate/impl/core"
	"tiergate/internal/http-server/session"
	"tiergate/internal/http-server/views"
	"tiergate/lib/sl"
)

type Core interface {
	Register(ctx context.Context, req core.RegisterRequest) (*core.Registration, error)
	SignIn(ctx context.Context, username, password string) (*entity.User, error)
	Page(ctx context.Context, state entity.AppState) (*core.Page, error)
	NewPuzzle() entity.Puzzle
}

// Env is what the page handlers share besides the core.
type Env struct {
	Sessions *session.Manager
	Views    *views.Renderer
}

func Home(log *slog.Logger, handler Core, env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		sess := env.Sessions.Load(r)
		state := sess.State()
		if code := r.URL.Query().Get(entity.InviteParam); code != "" {
			state = state.WithInvite(code)
		}
		flashes := sess.Flashes()

		if state.SignedIn() {
			page, err := handler.Page(r.Context(), state)
			if err == nil {
				sess.SetState(state)
				if !save(w, r, sess, logger) {
					return
				}
				if err = env.Views.App(w, views.AppPage{Flashes: flashes, Page: page}); err != nil {
					logger.Error("render app", sl.Err(err))
				}
				return
			}
			if core.KindOf(err) != core.KindUnauthorized {
				logger.Error("load page", sl.Err(err))
				http.Error(w, core.Message(err), http.StatusServiceUnavailable)
				return
			}
			logger.With(slog.String("user_id", state.UserID)).Info("session user is gone")
			state = state.SignedOut()
			flashes = append(flashes, session.Flash{Kind: session.FlashError, Title: "Error", Message: core.Message(err)})
		}

		puzzle := handler.NewPuzzle()
		sess.SetPuzzle(puzzle)
		sess.SetState(state)
		if !save(w, r, sess, logger) {
			return
		}
		err := env.Views.Auth(w, views.AuthPage{
			Flashes:    flashes,
			Puzzle:     puzzle,
			InviteCode: state.InviteCode,
		})
		if err != nil {
			logger.Error("render auth", sl.Err(err))
		}
	}
}

func Register(log *slog.Logger, handler Core, env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		sess := env.Sessions.Load(r)
		state := sess.State()

		reg, err := handler.Register(r.Context(), core.RegisterRequest{
			Username:   strings.TrimSpace(r.PostFormValue("username")),
			Password:   r.PostFormValue("password"),
			Answer:     r.PostFormValue("puzzle_answer"),
			Puzzle:     sess.Puzzle(),
			InviteCode: state.InviteCode,
		})
		if err != nil {
			logger.Debug("registration rejected", sl.Err(err))
			sess.AddFlash(session.FlashError, "Error", core.Message(err))
			redirectHome(w, r, sess, logger)
			return
		}

		sess.SetState(state.WithUser(reg.User.ID))
		sess.AddFlash(session.FlashSuccess, "Success", "Account created successfully!")
		if !reg.InviteLinkIssued {
			sess.AddFlash(session.FlashWarning, "Warning", "Your invite link is not ready yet. Check back shortly.")
		}
		redirectHome(w, r, sess, logger)
	}
}

func Login(log *slog.Logger, handler Core, env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		sess := env.Sessions.Load(r)
		state := sess.State()

		user, err := handler.SignIn(r.Context(), strings.TrimSpace(r.PostFormValue("username")), r.PostFormValue("password"))
		if err != nil {
			sess.AddFlash(session.FlashError, "Error", core.Message(err))
			redirectHome(w, r, sess, logger)
			return
		}

		sess.SetState(state.WithUser(user.ID))
		sess.AddFlash(session.FlashSuccess, "Welcome back", user.Username)
		redirectHome(w, r, sess, logger)
	}
}

func Logout(log *slog.Logger, env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := env.Sessions.Load(r)
		sess.SetState(sess.State().SignedOut())
		redirectHome(w, r, sess, requestLogger(log, r))
	}
}

// Navigate switches the routed view. Any selector is accepted; unknown ones
// render as the dashboard.
func Navigate(log *slog.Logger, env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := env.Sessions.Load(r)
		state := sess.State()
		if state.SignedIn() {
			sess.SetState(state.Navigate(chi.URLParam(r, "view")))
		}
		redirectHome(w, r, sess, requestLogger(log, r))
	}
}

// TooManyRequests answers a throttled form post with a toast.
func TooManyRequests(log *slog.Logger, env Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)
		logger.Warn("rate limited")

		sess := env.Sessions.Load(r)
		sess.AddFlash(session.FlashError, "Error", "Too many requests. Please slow down.")
		redirectHome(w, r, sess, logger)
	}
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.web"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func save(w http.ResponseWriter, r *http.Request, sess *session.Session, log *slog.Logger) bool {
	if err := sess.Save(w, r); err != nil {
		log.Error("save session", sl.Err(err))
		http.Error(w, "Session error", http.StatusInternalServerError)
		return false
	}
	return true
}

func redirectHome(w http.ResponseWriter, r *http.Request, sess *session.Session, log *slog.Logger) {
	if save(w, r, sess, log) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
