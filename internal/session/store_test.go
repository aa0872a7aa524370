package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/persist"
	"github.com/angelmondragon/salessavvy-storefront/pkg/auth"
	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	bound      backend.Session
	loginResp  *backend.AuthResponse
	loginErr   error
	validate   func(ctx context.Context) (*backend.Identity, error)
	logoutErr  error
	validates  int32
	logouts    int32
	registered backend.RegisterRequest
}

func (f *fakeBackend) Bind(s backend.Session) { f.bound = s }

func (f *fakeBackend) Login(context.Context, backend.LoginRequest) (*backend.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeBackend) Register(_ context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error) {
	f.registered = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	user := *f.loginResp.User
	user.Role = req.Role
	return &backend.AuthResponse{Success: true, Token: f.loginResp.Token, User: &user}, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	atomic.AddInt32(&f.logouts, 1)
	return f.logoutErr
}

func (f *fakeBackend) ValidateToken(ctx context.Context) (*backend.Identity, error) {
	atomic.AddInt32(&f.validates, 1)
	if f.validate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid")
	}
	return f.validate(ctx)
}

func (f *fakeBackend) ForgotPassword(context.Context, string) (string, error) {
	return "Reset link sent", nil
}

func (f *fakeBackend) ResetPassword(context.Context, string, string) (string, error) {
	return "Password updated", nil
}

func (f *fakeBackend) ValidateResetToken(_ context.Context, token string) (bool, error) {
	return token == "good", nil
}

func alice() *backend.Identity {
	return &backend.Identity{UserID: 1, Username: "alice", Email: "alice@example.com", Role: enums.RoleCustomer, FirstName: "Alice"}
}

func newFileStore(t *testing.T) *persist.FileStore {
	t.Helper()
	store, err := persist.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return store
}

func TestInitializeWithoutTokenIsSignedOut(t *testing.T) {
	remote := &fakeBackend{}
	s := New(remote, newFileStore(t))

	s.Initialize(context.Background())

	require.False(t, s.IsAuthenticated())
	require.True(t, s.Snapshot().Initialized)
	require.Zero(t, remote.validates)
	require.Same(t, s, remote.bound)
}

func TestLoginThenInitializeRestoresFromCacheWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	remote := &fakeBackend{loginResp: &backend.AuthResponse{Success: true, Token: "opaque-token", User: alice()}}

	first := New(remote, store)
	_, err := first.Login(ctx, backend.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.True(t, first.IsAuthenticated())

	reloaded := &fakeBackend{}
	second := New(reloaded, store)
	second.Initialize(ctx)

	require.True(t, second.IsAuthenticated())
	require.Zero(t, reloaded.validates, "fast path must not call the backend")
	got := second.Identity()
	require.Equal(t, "alice", got.Username)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, enums.RoleCustomer, got.Role)
	require.Equal(t, "opaque-token", second.Token())
}

func TestInitializeValidatesTokenWithoutCachedIdentity(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	require.NoError(t, store.Set(ctx, persist.KeyToken, "tok"))

	remote := &fakeBackend{validate: func(context.Context) (*backend.Identity, error) { return alice(), nil }}
	s := New(remote, store)
	s.Initialize(ctx)

	require.True(t, s.IsAuthenticated())
	require.EqualValues(t, 1, remote.validates)
	_, ok, err := store.Get(ctx, persist.KeyUser)
	require.NoError(t, err)
	require.True(t, ok, "validated identity should be cached")
}

func TestInitializeFailsClosed(t *testing.T) {
	cases := map[string]func(context.Context) (*backend.Identity, error){
		"rejected":    func(context.Context) (*backend.Identity, error) { return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bad") },
		"unreachable": func(context.Context) (*backend.Identity, error) { return nil, pkgerrors.New(pkgerrors.CodeUnreachable, "down") },
	}
	for name, validate := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newFileStore(t)
			require.NoError(t, store.Set(ctx, persist.KeyToken, "tok"))

			s := New(&fakeBackend{validate: validate}, store)
			s.Initialize(ctx)

			require.False(t, s.IsAuthenticated())
			require.Empty(t, s.Token())
			_, ok, err := store.Get(ctx, persist.KeyToken)
			require.NoError(t, err)
			require.False(t, ok, "token must be cleared")
		})
	}
}

func TestInitializeDropsIdentityWithoutToken(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	require.NoError(t, store.Set(ctx, persist.KeyUser, `{"userId":1,"username":"alice"}`))

	s := New(&fakeBackend{}, store)
	s.Initialize(ctx)

	require.False(t, s.IsAuthenticated())
	_, ok, err := store.Get(ctx, persist.KeyUser)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInitializeRejectsExpiredJWTWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	cfg := config.DevServerConfig{JWTSecret: "s", JWTIssuer: "i", ExpirationMinutes: 1}
	token, err := auth.MintAccessToken(cfg, time.Now().Add(-time.Hour), auth.AccessTokenPayload{UserID: 1, Role: enums.RoleCustomer})
	require.NoError(t, err)

	store := newFileStore(t)
	require.NoError(t, store.Set(ctx, persist.KeyToken, token))
	require.NoError(t, store.Set(ctx, persist.KeyUser, `{"userId":1,"username":"alice"}`))

	remote := &fakeBackend{}
	s := New(remote, store)
	s.Initialize(ctx)

	require.False(t, s.IsAuthenticated())
	require.Zero(t, remote.validates)
}

func TestConcurrentInitializeSharesOneValidation(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	require.NoError(t, store.Set(ctx, persist.KeyToken, "tok"))

	release := make(chan struct{})
	remote := &fakeBackend{validate: func(context.Context) (*backend.Identity, error) {
		<-release
		return alice(), nil
	}}
	s := New(remote, store)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Initialize(ctx)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&remote.validates) == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&remote.validates))
	require.True(t, s.IsAuthenticated())
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	remote := &fakeBackend{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid username or password")}
	s := New(remote, newFileStore(t))

	_, err := s.Login(ctx, backend.LoginRequest{Username: "alice", Password: "nope"})
	require.Error(t, err)
	require.False(t, s.IsAuthenticated())
	require.Empty(t, s.Token())
	require.Equal(t, "Invalid username or password", s.Error())
	require.False(t, s.Snapshot().Loading)

	s.ClearError()
	require.Empty(t, s.Error())
}

type failingSet struct {
	persist.Store
}

func (failingSet) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestLoginPersistenceFailureRollsBack(t *testing.T) {
	remote := &fakeBackend{loginResp: &backend.AuthResponse{Success: true, Token: "tok", User: alice()}}
	s := New(remote, failingSet{newFileStore(t)})

	_, err := s.Login(context.Background(), backend.LoginRequest{Username: "alice", Password: "pw"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
	require.False(t, s.IsAuthenticated())
}

func TestRegisterKeepsRequestedAdminRole(t *testing.T) {
	remote := &fakeBackend{loginResp: &backend.AuthResponse{Success: true, Token: "tok", User: alice()}}
	s := New(remote, newFileStore(t))

	_, err := s.Register(context.Background(), backend.RegisterRequest{Username: "root", Email: "r@x.io", Password: "pw", Role: enums.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, enums.RoleAdmin, remote.registered.Role)
	require.True(t, s.IsAdmin())
}

func TestRegisterDefaultsToCustomer(t *testing.T) {
	remote := &fakeBackend{loginResp: &backend.AuthResponse{Success: true, Token: "tok", User: alice()}}
	s := New(remote, newFileStore(t))

	_, err := s.Register(context.Background(), backend.RegisterRequest{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, enums.RoleCustomer, remote.registered.Role)
	require.False(t, s.IsAdmin())
}

func TestLogoutIgnoresBackendFailure(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	remote := &fakeBackend{
		loginResp: &backend.AuthResponse{Success: true, Token: "tok", User: alice()},
		logoutErr: pkgerrors.New(pkgerrors.CodeUnreachable, "down"),
	}
	s := New(remote, store)
	_, err := s.Login(ctx, backend.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	var events []Event
	s.Subscribe(func(snap Snapshot) { events = append(events, snap.Event) })
	s.Logout(ctx)

	require.False(t, s.IsAuthenticated())
	require.EqualValues(t, 1, remote.logouts)
	require.Equal(t, []Event{EventLogout}, events)
	_, ok, err := store.Get(ctx, persist.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHandleUnauthorizedForcesLogoutOnce(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	remote := &fakeBackend{loginResp: &backend.AuthResponse{Success: true, Token: "tok", User: alice()}}
	s := New(remote, newFileStore(t), WithMetrics(metrics.NewClientMetrics(reg)))
	_, err := s.Login(ctx, backend.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	var events []Event
	unsubscribe := s.Subscribe(func(snap Snapshot) { events = append(events, snap.Event) })
	s.HandleUnauthorized(ctx)
	s.HandleUnauthorized(ctx)
	unsubscribe()

	require.False(t, s.IsAuthenticated())
	require.Equal(t, []Event{EventAuthRequired}, events)
	require.True(t, EventAuthRequired.ResetsIdentity())

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var forced float64
	for _, mf := range mfs {
		if mf.GetName() == "storefront_forced_logouts_total" {
			forced = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(1), forced)
}

func TestUpdateProfilePreservesIdentityFields(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	remote := &fakeBackend{loginResp: &backend.AuthResponse{Success: true, Token: "tok", User: alice()}}
	s := New(remote, store)
	_, err := s.Login(ctx, backend.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	first, last, phone := "Alice", "Liddell", "555-0100"
	updated, err := s.UpdateProfile(ctx, ProfileUpdate{FirstName: &first, LastName: &last, Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "Alice Liddell", updated.Username)
	require.Equal(t, "555-0100", updated.Phone)
	require.EqualValues(t, 1, updated.UserID)
	require.Equal(t, "alice@example.com", updated.Email)
	require.Equal(t, enums.RoleCustomer, updated.Role)

	reloaded := New(&fakeBackend{}, store)
	reloaded.Initialize(ctx)
	require.Equal(t, "Alice Liddell", reloaded.Identity().Username)
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	s := New(&fakeBackend{}, newFileStore(t))
	_, err := s.UpdateProfile(context.Background(), ProfileUpdate{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestIsAdminIsCaseInsensitive(t *testing.T) {
	user := alice()
	user.Role = "admin"
	remote := &fakeBackend{loginResp: &backend.AuthResponse{Success: true, Token: "tok", User: user}}
	s := New(remote, newFileStore(t))
	_, err := s.Login(context.Background(), backend.LoginRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.True(t, s.IsAdmin())
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeBackend{}, newFileStore(t))

	_, err := s.ForgotPassword(ctx, " ")
	require.Equal(t, "Email is required", pkgerrors.FieldErrors(err)["email"])

	msg, err := s.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "Reset link sent", msg)

	require.True(t, s.ValidateResetToken(ctx, "good"))
	require.False(t, s.ValidateResetToken(ctx, "bad"))
	require.False(t, s.ValidateResetToken(ctx, ""))

	msg, err = s.ResetPassword(ctx, "good", "n3w")
	require.NoError(t, err)
	require.Equal(t, "Password updated", msg)
}
