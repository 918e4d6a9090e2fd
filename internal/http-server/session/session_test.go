package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"tiergate/entity"
)

func testManager() *Manager {
	return NewManager(Config{Name: "test", Secret: "0123456789abcdef0123456789abcdef", MaxAge: 3600})
}

// roundTrip saves a session in one request and loads it in the next.
func roundTrip(t *testing.T, m *Manager, write func(*Session)) *Session {
	t.Helper()
	r1 := httptest.NewRequest(http.MethodGet, "/", nil)
	w1 := httptest.NewRecorder()
	s := m.Load(r1)
	write(s)
	require.NoError(t, s.Save(w1, r1))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w1.Result().Cookies() {
		r2.AddCookie(c)
	}
	return m.Load(r2)
}

func TestStateRoundTrip(t *testing.T) {
	m := testManager()
	state := entity.AppState{}.WithInvite("CODE").WithUser("u1").Navigate("tier-2")

	loaded := roundTrip(t, m, func(s *Session) { s.SetState(state) })
	require.Equal(t, state, loaded.State())
}

func TestPuzzleRoundTrip(t *testing.T) {
	m := testManager()
	loaded := roundTrip(t, m, func(s *Session) { s.SetPuzzle(entity.Puzzle{A: 3, B: 9}) })
	require.Equal(t, entity.Puzzle{A: 3, B: 9}, loaded.Puzzle())
}

func TestFlashesAreOneShot(t *testing.T) {
	m := testManager()
	loaded := roundTrip(t, m, func(s *Session) { s.AddFlash(FlashError, "Error", "boom") })

	flashes := loaded.Flashes()
	require.Equal(t, []Flash{{Kind: FlashError, Title: "Error", Message: "boom"}}, flashes)
	require.Empty(t, loaded.Flashes())
}

func TestSignedOutStateClearsKeys(t *testing.T) {
	m := testManager()
	signedIn := entity.AppState{InviteCode: "CODE"}.WithUser("u1")
	loaded := roundTrip(t, m, func(s *Session) {
		s.SetState(signedIn)
		s.SetState(signedIn.SignedOut())
	})
	require.Equal(t, entity.AppState{InviteCode: "CODE"}, loaded.State())
}

func TestTamperedCookieYieldsEmptySession(t *testing.T) {
	m := testManager()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "test", Value: "garbage"})
	s := m.Load(r)
	require.Equal(t, entity.AppState{}, s.State())
	require.NoError(t, s.Save(httptest.NewRecorder(), r))
}
