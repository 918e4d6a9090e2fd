package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tiergate/entity"
)

type memoryStore struct {
	mu        sync.Mutex
	users     []*entity.User
	links     []*entity.InviteLink
	tiers     []entity.TierRequirement
	calls     int
	inserts   int
	insertErr error
	rpcErr    error
	tiersErr  error
}

func (m *memoryStore) call() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *memoryStore) findUser(match func(*entity.User) bool) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memoryStore) UserByIP(_ context.Context, ip string) (*entity.User, error) {
	m.call()
	return m.findUser(func(u *entity.User) bool { return u.IPAddress == ip }), nil
}

func (m *memoryStore) UserByUsername(_ context.Context, username string) (*entity.User, error) {
	m.call()
	return m.findUser(func(u *entity.User) bool { return u.Username == username }), nil
}

func (m *memoryStore) UserByID(_ context.Context, id string) (*entity.User, error) {
	m.call()
	return m.findUser(func(u *entity.User) bool { return u.ID == id }), nil
}

func (m *memoryStore) InviteLinkByCode(_ context.Context, code string) (*entity.InviteLink, error) {
	m.call()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.InviteCode == code {
			return l, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) InviteLinkByUser(_ context.Context, userID string) (*entity.InviteLink, error) {
	m.call()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.UserID == userID {
			return l, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) InsertUser(_ context.Context, nu *entity.NewUser) (*entity.User, error) {
	m.call()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	u := &entity.User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		IPAddress:    nu.IPAddress,
		InvitedBy:    nu.InvitedBy,
	}
	m.users = append(m.users, u)
	cp := *u
	return &cp, nil
}

func (m *memoryStore) CreateUserInviteLink(_ context.Context, userID string) error {
	m.call()
	if m.rpcErr != nil {
		return m.rpcErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, &entity.InviteLink{ID: uuid.NewString(), UserID: userID, InviteCode: "code-" + userID[:4]})
	return nil
}

func (m *memoryStore) TierRequirements(context.Context) ([]entity.TierRequirement, error) {
	m.call()
	if m.tiersErr != nil {
		return nil, m.tiersErr
	}
	return append([]entity.TierRequirement(nil), m.tiers...), nil
}

func (m *memoryStore) linksFor(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.links {
		if l.UserID == userID {
			n++
		}
	}
	return n
}

type fixedIP struct {
	ip    string
	err   error
	calls int
}

func (f *fixedIP) ResolveIP(context.Context) (string, error) {
	f.calls++
	return f.ip, f.err
}

var testTiers = []entity.TierRequirement{
	{Tier: 1, ContentDescription: "10 videos", PriceUSD: 5, RequiredInvites: 5},
	{Tier: 2, ContentDescription: "50 videos", PriceUSD: 20, RequiredInvites: 20},
}

func newTestCore(store *memoryStore, ip IPResolver) *Core {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(store, ip, Config{PublicURL: "https://example.com", MediaBaseURL: "https://cdn.example.com/v"}, log)
	c.hash = func(pw string) (string, error) { return "hashed:" + pw, nil }
	return c
}

var puzzle = entity.Puzzle{A: 4, B: 5}

func validRequest() RegisterRequest {
	return RegisterRequest{
		Username: "alice",
		Password: "secret1",
		Answer:   "9",
		Puzzle:   puzzle,
	}
}

func TestRegisterHappyPath(t *testing.T) {
	store := &memoryStore{}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	reg, err := c.Register(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, reg.InviteLinkIssued)
	require.Equal(t, "alice", reg.User.Username)
	require.Equal(t, 0, reg.User.TotalInvites)
	require.Equal(t, 0, reg.User.CurrentTier)
	require.Nil(t, reg.User.InvitedBy)
	require.Equal(t, "203.0.113.10", reg.User.IPAddress)
	require.Equal(t, "hashed:secret1", reg.User.PasswordHash)
	require.Equal(t, 1, store.inserts)
	require.Equal(t, 1, store.linksFor(reg.User.ID))
}

func TestRegisterUsesRealHash(t *testing.T) {
	store := &memoryStore{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(store, &fixedIP{ip: "203.0.113.10"}, Config{}, log)

	reg, err := c.Register(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotContains(t, reg.User.PasswordHash, "secret1")
	require.Contains(t, reg.User.PasswordHash, "$argon2id$")
}

func TestRegisterValidationMakesNoRemoteCalls(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		want   error
	}{
		{"wrong answer", func(r *RegisterRequest) { r.Answer = "10" }, ErrPuzzleMismatch},
		{"non numeric answer", func(r *RegisterRequest) { r.Answer = "nine" }, ErrPuzzleMismatch},
		{"no puzzle issued", func(r *RegisterRequest) { r.Puzzle = entity.Puzzle{} }, ErrPuzzleMismatch},
		{"short username", func(r *RegisterRequest) { r.Username = "al" }, ErrUsernameTooShort},
		{"short password", func(r *RegisterRequest) { r.Password = "12345" }, ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			ip := &fixedIP{ip: "203.0.113.10"}
			c := newTestCore(store, ip)

			req := validRequest()
			tt.mutate(&req)
			_, err := c.Register(context.Background(), req)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, KindValidation, KindOf(err))
			require.Zero(t, store.calls)
			require.Zero(t, ip.calls)
		})
	}
}

func TestRegisterPuzzleCheckedFirst(t *testing.T) {
	c := newTestCore(&memoryStore{}, &fixedIP{ip: "203.0.113.10"})
	_, err := c.Register(context.Background(), RegisterRequest{Username: "a", Password: "b", Answer: "1", Puzzle: puzzle})
	require.ErrorIs(t, err, ErrPuzzleMismatch)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	store := &memoryStore{users: []*entity.User{{ID: "u1", Username: "alice", IPAddress: "198.51.100.1"}}}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	_, err := c.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrDuplicateUsername)
	require.Equal(t, "Username already exists. Please choose another.", Message(err))
	require.Equal(t, KindConflict, KindOf(err))
	require.Zero(t, store.inserts)
}

func TestRegisterDuplicateIP(t *testing.T) {
	store := &memoryStore{users: []*entity.User{{ID: "u1", Username: "someone", IPAddress: "203.0.113.10"}}}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	req := validRequest()
	req.Username = "different"
	_, err := c.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrDuplicateIP)
	require.Zero(t, store.inserts)
}

func TestRegisterIPFailureIsGeneric(t *testing.T) {
	store := &memoryStore{}
	c := newTestCore(store, &fixedIP{err: errors.New("lookup down")})

	_, err := c.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrRegistrationFailed)
	require.Equal(t, KindService, KindOf(err))
	require.Zero(t, store.calls)
}

func TestRegisterWithInviteCode(t *testing.T) {
	store := &memoryStore{
		users: []*entity.User{{ID: "inviter-1", Username: "bob", IPAddress: "198.51.100.1"}},
		links: []*entity.InviteLink{{ID: "l1", UserID: "inviter-1", InviteCode: "BOBCODE"}},
	}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	req := validRequest()
	req.InviteCode = "BOBCODE"
	reg, err := c.Register(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, reg.User.InvitedBy)
	require.Equal(t, "inviter-1", *reg.User.InvitedBy)
}

func TestRegisterUnknownInviteCodeIsIgnored(t *testing.T) {
	store := &memoryStore{}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	req := validRequest()
	req.InviteCode = "NOPE"
	reg, err := c.Register(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, reg.User.InvitedBy)
}

func TestRegisterInsertFailureSurfacesBackendMessage(t *testing.T) {
	store := &memoryStore{insertErr: publicErr("value too long")}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	_, err := c.Register(context.Background(), validRequest())
	require.Error(t, err)
	require.Equal(t, KindService, KindOf(err))
	require.Equal(t, "value too long", Message(err))
}

func TestRegisterInsertFailureWithoutMessage(t *testing.T) {
	store := &memoryStore{insertErr: errors.New("connection reset")}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	_, err := c.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestRegisterInsertConflictFromStorage(t *testing.T) {
	store := &memoryStore{insertErr: &entity.ConflictError{Field: entity.FieldIPAddress, Err: errors.New("dup")}}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	_, err := c.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrDuplicateIP)

	store.insertErr = &entity.ConflictError{Field: entity.FieldUsername, Err: errors.New("dup")}
	_, err = c.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegisterInviteLinkFailureKeepsAccount(t *testing.T) {
	store := &memoryStore{rpcErr: errors.New("rpc failed")}
	c := newTestCore(store, &fixedIP{ip: "203.0.113.10"})

	reg, err := c.Register(context.Background(), validRequest())
	require.NoError(t, err)
	require.False(t, reg.InviteLinkIssued)
	require.Equal(t, 1, store.inserts)
	require.Zero(t, store.linksFor(reg.User.ID))
}

func TestPageDashboard(t *testing.T) {
	store := &memoryStore{
		users: []*entity.User{{ID: "u1", Username: "alice", TotalInvites: 7, CurrentTier: 1}},
		links: []*entity.InviteLink{{ID: "l1", UserID: "u1", InviteCode: "ALICE1"}},
		tiers: testTiers,
	}
	c := newTestCore(store, nil)

	page, err := c.Page(context.Background(), entity.AppState{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, entity.RouteDashboard, page.Route.Kind)
	require.Equal(t, "https://example.com/?invite=ALICE1", page.InviteLink)
	require.Equal(t, 13, page.Progress.Remaining)
	require.Equal(t, 35, page.Progress.PercentLabel)
	require.Empty(t, page.Warnings)
}

func TestPageTierViews(t *testing.T) {
	store := &memoryStore{
		users: []*entity.User{{ID: "u1", Username: "alice", TotalInvites: 7, CurrentTier: 1}},
		tiers: testTiers,
	}
	c := newTestCore(store, nil)
	ctx := context.Background()

	locked, err := c.Page(ctx, entity.AppState{UserID: "u1", View: "tier-2"})
	require.NoError(t, err)
	require.Equal(t, entity.RouteTier, locked.Route.Kind)
	require.False(t, locked.Access.Unlocked)

	unlocked, err := c.Page(ctx, entity.AppState{UserID: "u1", View: "tier-1"})
	require.NoError(t, err)
	require.True(t, unlocked.Access.Unlocked)

	byNumber, err := c.TierView(ctx, "u1", 2)
	require.NoError(t, err)
	require.Equal(t, locked.Access, byNumber.Access)
	require.Equal(t, 13, byNumber.Access.Remaining)
}

func TestPageUnknownViewFallsBackToDashboard(t *testing.T) {
	store := &memoryStore{
		users: []*entity.User{{ID: "u1", Username: "alice"}},
		tiers: testTiers,
	}
	c := newTestCore(store, nil)

	page, err := c.Page(context.Background(), entity.AppState{UserID: "u1", View: "settings"})
	require.NoError(t, err)
	require.Equal(t, entity.RouteDashboard, page.Route.Kind)
	require.NotNil(t, page.Progress)
}

func TestPagePreview(t *testing.T) {
	store := &memoryStore{users: []*entity.User{{ID: "u1", Username: "alice"}}}
	c := newTestCore(store, nil)
	c.conf.PreviewFiles = []string{"IMG_1.MOV", "IMG_2.MOV"}

	page, err := c.Page(context.Background(), entity.AppState{UserID: "u1", View: entity.ViewFreePreview})
	require.NoError(t, err)
	require.Len(t, page.Preview, 2)
	require.Equal(t, "https://cdn.example.com/v/IMG_1.MOV", page.Preview[0].URL)
}

func TestPageTiersUnavailable(t *testing.T) {
	store := &memoryStore{
		users:    []*entity.User{{ID: "u1", Username: "alice"}},
		tiersErr: errors.New("down"),
	}
	c := newTestCore(store, nil)

	page, err := c.Page(context.Background(), entity.AppState{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, []string{"Failed to load tier information"}, page.Warnings)
	require.True(t, page.Progress.Complete)
}

func TestPageRequiresUser(t *testing.T) {
	c := newTestCore(&memoryStore{}, nil)

	_, err := c.Page(context.Background(), entity.AppState{})
	require.ErrorIs(t, err, ErrNotSignedIn)

	_, err = c.Page(context.Background(), entity.AppState{UserID: "gone"})
	require.ErrorIs(t, err, ErrNotSignedIn)
}

type credentials struct {
	user *entity.User
	err  error
}

func (c credentials) UserByCredentials(context.Context, string, string) (*entity.User, error) {
	return c.user, c.err
}

func TestSignIn(t *testing.T) {
	c := newTestCore(&memoryStore{}, nil)
	ctx := context.Background()

	_, err := c.SignIn(ctx, "alice", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	c.SetAuthService(credentials{user: &entity.User{ID: "u1"}})
	user, err := c.SignIn(ctx, "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)

	c.SetAuthService(credentials{err: ErrInvalidCredentials})
	_, err = c.SignIn(ctx, "alice", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	c.SetAuthService(credentials{err: errors.New("offline")})
	_, err = c.SignIn(ctx, "alice", "pw")
	require.ErrorIs(t, err, ErrSignInFailed)
}

func TestNewPuzzle(t *testing.T) {
	c := newTestCore(&memoryStore{}, nil)
	c.puzzle = func(n int) int { return 2 }
	require.Equal(t, entity.Puzzle{A: 3, B: 3}, c.NewPuzzle())
}

type publicErr string

func (e publicErr) Error() string         { return "store: " + string(e) }
func (e publicErr) PublicMessage() string { return string(e) }
