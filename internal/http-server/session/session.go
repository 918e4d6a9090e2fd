// Package session keeps the visitor's AppState, registration puzzle and
// one-shot toasts in a signed cookie.
package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"

	"tiergate/entity"
)

const (
	keyUserID  = "user_id"
	keyView    = "view"
	keyInvite  = "invite"
	keyPuzzleA = "puzzle_a"
	keyPuzzleB = "puzzle_b"
	keyFlashes = "flashes"
)

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashWarning FlashKind = "warning"
)

// Flash is a toast shown once on the next rendered page.
type Flash struct {
	Kind    FlashKind
	Title   string
	Message string
}

func init() {
	gob.Register([]Flash(nil))
}

type Config struct {
	Name   string
	Secret string
	MaxAge int
	Secure bool
}

type Manager struct {
	store sessions.Store
	name  string
}

func NewManager(conf Config) *Manager {
	store := sessions.NewCookieStore([]byte(conf.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   conf.MaxAge,
		HttpOnly: true,
		Secure:   conf.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: conf.Name}
}

// Session is the decoded cookie of one request. Changes are written by Save.
type Session struct {
	s *sessions.Session
}

// Load never fails: a cookie that cannot be decoded yields a fresh session.
func (m *Manager) Load(r *http.Request) *Session {
	s, err := m.store.Get(r, m.name)
	if err != nil || s == nil {
		s = sessions.NewSession(m.store, m.name)
		s.IsNew = true
		if opts, ok := m.store.(*sessions.CookieStore); ok {
			o := *opts.Options
			s.Options = &o
		}
	}
	return &Session{s: s}
}

func (s *Session) Save(w http.ResponseWriter, r *http.Request) error {
	return s.s.Save(r, w)
}

func (s *Session) State() entity.AppState {
	return entity.AppState{
		UserID:     s.str(keyUserID),
		View:       s.str(keyView),
		InviteCode: s.str(keyInvite),
	}
}

func (s *Session) SetState(state entity.AppState) {
	s.set(keyUserID, state.UserID)
	s.set(keyView, state.View)
	s.set(keyInvite, state.InviteCode)
}

func (s *Session) Puzzle() entity.Puzzle {
	return entity.Puzzle{A: s.num(keyPuzzleA), B: s.num(keyPuzzleB)}
}

func (s *Session) SetPuzzle(p entity.Puzzle) {
	s.s.Values[keyPuzzleA] = p.A
	s.s.Values[keyPuzzleB] = p.B
}

func (s *Session) AddFlash(kind FlashKind, title, message string) {
	pending, _ := s.s.Values[keyFlashes].([]Flash)
	s.s.Values[keyFlashes] = append(pending, Flash{Kind: kind, Title: title, Message: message})
}

// Flashes drains the pending toasts.
func (s *Session) Flashes() []Flash {
	pending, _ := s.s.Values[keyFlashes].([]Flash)
	delete(s.s.Values, keyFlashes)
	return pending
}

func (s *Session) str(key string) string {
	v, _ := s.s.Values[key].(string)
	return v
}

func (s *Session) num(key string) int {
	v, _ := s.s.Values[key].(int)
	return v
}

func (s *Session) set(key, value string) {
	if value == "" {
		delete(s.s.Values, key)
		return
	}
	s.s.Values[key] = value
}
