// Package apiv1 is the JSON surface over the same core the pages use. It
// shares the session cookie with the site.
package apiv1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tiergate/entity"
	"tiergate/impl/core"
	"tiergate/internal/http-server/session"
	"tiergate/lib/api/response"
	"tiergate/lib/sl"
)

type Core interface {
	Tiers(ctx context.Context) ([]entity.TierRequirement, error)
	Dashboard(ctx context.Context, userID string) (*core.Page, error)
	Register(ctx context.Context, req core.RegisterRequest) (*core.Registration, error)
	NewPuzzle() entity.Puzzle
}

type Dashboard struct {
	User       *entity.User             `json:"user"`
	Tiers      []entity.TierRequirement `json:"tiers"`
	Progress   *entity.Progress         `json:"progress"`
	InviteLink string                   `json:"invite_link"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

type Registered struct {
	User             *entity.User `json:"user"`
	InviteLinkIssued bool         `json:"invite_link_issued"`
}

func Tiers(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		tiers, err := handler.Tiers(r.Context())
		if err != nil {
			logger.Error("get tiers", sl.Err(err))
			fail(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(tiers))
	}
}

func Me(log *slog.Logger, handler Core, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		state := sessions.Load(r).State()
		page, err := handler.Dashboard(r.Context(), state.UserID)
		if err != nil {
			logger.With(slog.String("user_id", state.UserID)).Debug("dashboard", sl.Err(err))
			fail(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(Dashboard{
			User:       page.User.Public(),
			Tiers:      page.Tiers,
			Progress:   page.Progress,
			InviteLink: page.InviteLink,
			Warnings:   page.Warnings,
		}))
	}
}

// Puzzle issues a fresh challenge into the session; the answer stays there.
func Puzzle(log *slog.Logger, handler Core, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		sess := sessions.Load(r)
		puzzle := handler.NewPuzzle()
		sess.SetPuzzle(puzzle)
		if err := sess.Save(w, r); err != nil {
			logger.Error("save session", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Session error"))
			return
		}
		render.JSON(w, r, response.Ok(puzzle))
	}
}

func Register(log *slog.Logger, handler Core, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var credentials entity.Credentials
		if err := render.Bind(r, &credentials); err != nil {
			logger.Debug("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		sess := sessions.Load(r)
		state := sess.State()
		invite := credentials.InviteCode
		if invite == "" {
			invite = state.InviteCode
		}

		reg, err := handler.Register(r.Context(), core.RegisterRequest{
			Username:   credentials.Username,
			Password:   credentials.Password,
			Answer:     credentials.PuzzleAnswer,
			Puzzle:     sess.Puzzle(),
			InviteCode: invite,
		})
		if err != nil {
			logger.Debug("registration rejected", sl.Err(err))
			fail(w, r, err)
			return
		}

		sess.SetState(state.WithUser(reg.User.ID))
		if err = sess.Save(w, r); err != nil {
			logger.Error("save session", sl.Err(err))
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(Registered{User: reg.User.Public(), InviteLinkIssued: reg.InviteLinkIssued}))
	}
}

// Status maps a core error kind to the HTTP status of the answer.
func Status(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindConflict:
		return http.StatusConflict
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, Status(err))
	render.JSON(w, r, response.Error(core.Message(err)))
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.apiv1"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func TooManyRequests(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestLogger(log, r).Warn("rate limited")
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("Too many requests. Please slow down."))
	}
}
