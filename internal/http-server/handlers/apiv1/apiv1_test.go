package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"tiergate/entity"
	"tiergate/impl/core"
	"tiergate/internal/http-server/session"
)

type fakeCore struct {
	tiers    []entity.TierRequirement
	tiersErr error
	request  core.RegisterRequest
	regErr   error
}

func (f *fakeCore) Tiers(context.Context) ([]entity.TierRequirement, error) {
	return f.tiers, f.tiersErr
}

func (f *fakeCore) Dashboard(_ context.Context, userID string) (*core.Page, error) {
	if userID == "" {
		return nil, core.ErrNotSignedIn
	}
	user := &entity.User{ID: userID, Username: "alice", PasswordHash: "secret-hash", IPAddress: "203.0.113.5", CurrentTier: 1, TotalInvites: 7}
	progress := entity.NewProgress(user, f.tiers)
	return &core.Page{User: user, Tiers: f.tiers, Progress: &progress, InviteLink: "https://example.com/?invite=abc"}, nil
}

func (f *fakeCore) Register(_ context.Context, req core.RegisterRequest) (*core.Registration, error) {
	f.request = req
	if f.regErr != nil {
		return nil, f.regErr
	}
	if !req.Puzzle.Check(req.Answer) {
		return nil, core.ErrPuzzleMismatch
	}
	return &core.Registration{User: &entity.User{ID: "user-1", Username: req.Username, PasswordHash: "h"}, InviteLinkIssued: true}, nil
}

func (f *fakeCore) NewPuzzle() entity.Puzzle {
	return entity.Puzzle{A: 6, B: 3}
}

type envelope struct {
	Data          json.RawMessage `json:"data"`
	Success       bool            `json:"success"`
	StatusMessage string          `json:"status_message"`
}

type client struct {
	t       *testing.T
	router  http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, f *fakeCore) *client {
	sessions := session.NewManager(session.Config{Name: "tg", Secret: "0123456789abcdef0123456789abcdef", MaxAge: 3600})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Get("/tiers", Tiers(log, f))
	r.Get("/me", Me(log, f, sessions))
	r.Get("/puzzle", Puzzle(log, f, sessions))
	r.Post("/register", Register(log, f, sessions))
	return &client{t: t, router: r}
}

func (c *client) do(method, path, body string) (int, envelope) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	var env envelope
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

var tiers = []entity.TierRequirement{
	{Tier: 1, PriceUSD: 5, RequiredInvites: 5},
	{Tier: 2, PriceUSD: 10, RequiredInvites: 20},
}

func TestTiers(t *testing.T) {
	c := newClient(t, &fakeCore{tiers: tiers})
	code, env := c.do(http.MethodGet, "/tiers", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)

	var got []entity.TierRequirement
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, tiers, got)
}

func TestTiersUnavailable(t *testing.T) {
	c := newClient(t, &fakeCore{tiersErr: core.ErrTiersUnavailable})
	code, env := c.do(http.MethodGet, "/tiers", "")
	require.Equal(t, http.StatusBadGateway, code)
	require.False(t, env.Success)
	require.Equal(t, "Failed to load tier information", env.StatusMessage)
}

func TestMeRequiresSession(t *testing.T) {
	c := newClient(t, &fakeCore{tiers: tiers})
	code, env := c.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, core.ErrNotSignedIn.Message, env.StatusMessage)
}

func TestPuzzleRegisterMe(t *testing.T) {
	f := &fakeCore{tiers: tiers}
	c := newClient(t, f)

	code, env := c.do(http.MethodGet, "/puzzle", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"a":6,"b":3}`, string(env.Data))

	code, env = c.do(http.MethodPost, "/register", `{"username":"alice","password":"secret1","puzzle_answer":"8"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, core.ErrPuzzleMismatch.Message, env.StatusMessage)

	code, env = c.do(http.MethodPost, "/register", `{"username":" alice ","password":"secret1","puzzle_answer":"9","invite_code":"abc"}`)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "alice", f.request.Username)
	require.Equal(t, "abc", f.request.InviteCode)

	var reg struct {
		User             map[string]any `json:"user"`
		InviteLinkIssued bool           `json:"invite_link_issued"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	require.True(t, reg.InviteLinkIssued)
	require.NotContains(t, reg.User, "password_hash")

	code, env = c.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, code)
	var dash struct {
		User       map[string]any  `json:"user"`
		Progress   entity.Progress `json:"progress"`
		InviteLink string          `json:"invite_link"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	require.Equal(t, "user-1", dash.User["id"])
	require.NotContains(t, dash.User, "password_hash")
	require.NotContains(t, dash.User, "ip_address")
	require.Equal(t, 13, dash.Progress.Remaining)
	require.Equal(t, 35, dash.Progress.PercentLabel)
	require.Equal(t, "https://example.com/?invite=abc", dash.InviteLink)
}

func TestRegisterConflict(t *testing.T) {
	c := newClient(t, &fakeCore{regErr: core.ErrDuplicateIP})
	code, env := c.do(http.MethodPost, "/register", `{"username":"alice","password":"secret1","puzzle_answer":"9"}`)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, core.ErrDuplicateIP.Message, env.StatusMessage)
}

func TestRegisterBadBody(t *testing.T) {
	c := newClient(t, &fakeCore{})
	code, env := c.do(http.MethodPost, "/register", `{"username":`)
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, env.Success)
}

func TestStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, Status(core.ErrUsernameTooShort))
	require.Equal(t, http.StatusConflict, Status(core.ErrDuplicateUsername))
	require.Equal(t, http.StatusUnauthorized, Status(core.ErrInvalidCredentials))
	require.Equal(t, http.StatusBadGateway, Status(core.ErrRegistrationFailed))
	require.Equal(t, http.StatusBadGateway, Status(errors.New("boom")))
}
