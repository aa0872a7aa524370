package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/persist"
	"github.com/angelmondragon/salessavvy-storefront/pkg/auth"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/metrics"
	"github.com/angelmondragon/salessavvy-storefront/pkg/observe"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// Backend is the slice of the REST boundary the session store calls.
type Backend interface {
	Bind(s backend.Session)
	Login(ctx context.Context, req backend.LoginRequest) (*backend.AuthResponse, error)
	Register(ctx context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error)
	Logout(ctx context.Context) error
	ValidateToken(ctx context.Context) (*backend.Identity, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	ValidateResetToken(ctx context.Context, token string) (bool, error)
}

// Store is the single owner of the credential token and cached identity.
// It is the only writer of either, in memory and in persistence.
type Store struct {
	remote  Backend
	persist persist.Store
	logger  *logger.Logger
	metrics *metrics.ClientMetrics
	now     func() time.Time

	mu          sync.RWMutex
	token       string
	identity    *backend.Identity
	initialized bool
	loading     bool
	errMsg      string

	initGroup singleflight.Group
	subs      observe.Hub[Snapshot]
}

// Option configures optional store behavior.
type Option func(*Store)

func WithLogger(logg *logger.Logger) Option {
	return func(s *Store) {
		if logg != nil {
			s.logger = logg
		}
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the store and binds it to the backend as its credential source.
func New(remote Backend, store persist.Store, opts ...Option) *Store {
	s := &Store{
		remote:  remote,
		persist: store,
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	remote.Bind(s)
	return s
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *backend.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyIdentity(s.identity)
}

// IsAuthenticated is recomputed on every call: identity and token must both be present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.token != ""
}

// IsAdmin reports whether the current identity has the ADMIN role.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.token != "" && s.identity.IsAdmin()
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked("")
}

// Subscribe registers fn for every state change and returns an unsubscribe func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.subs.Subscribe(fn)
}

func (s *Store) snapshotLocked(ev Event) Snapshot {
	return Snapshot{
		Event:         ev,
		Identity:      copyIdentity(s.identity),
		Authenticated: s.identity != nil && s.token != "",
		Initialized:   s.initialized,
		Loading:       s.loading,
		Error:         s.errMsg,
	}
}

// update applies fn under the write lock and notifies subscribers afterwards.
func (s *Store) update(ev Event, fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked(ev)
	s.mu.Unlock()
	s.subs.Publish(snap)
}

// Initialize restores the session from persistence. It never fails: every
// error path ends signed out. Concurrent callers share one run.
func (s *Store) Initialize(ctx context.Context) {
	_, _, _ = s.initGroup.Do("initialize", func() (any, error) {
		s.initialize(ctx)
		return nil, nil
	})
}

func (s *Store) initialize(ctx context.Context) {
	ctx = s.logger.WithOperation(ctx, "session.initialize")
	defer s.update(EventInitialized, func() {
		s.initialized = true
		s.loading = false
	})

	token, ok, err := s.persist.Get(ctx, persist.KeyToken)
	if err != nil {
		s.logger.Error(ctx, "read persisted token", err)
	}
	token = strings.TrimSpace(token)
	if err != nil || !ok || token == "" {
		// identity without token is an invariant breach; drop it
		s.clear(ctx)
		return
	}

	if auth.Expired(token, s.now()) {
		s.logger.Info(ctx, "persisted token expired")
		s.clear(ctx)
		return
	}

	if identity := s.loadCachedIdentity(ctx); identity != nil {
		s.mu.Lock()
		s.token = token
		s.identity = identity
		s.mu.Unlock()
		s.logger.Debug(s.logger.WithUserID(ctx, identityID(identity)), "session restored from cache")
		return
	}

	// token without cached identity: ask the backend who this is
	s.mu.Lock()
	s.token = token
	s.loading = true
	s.mu.Unlock()

	identity, err := s.remote.ValidateToken(ctx)
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "token validation failed")
		s.clear(ctx)
		return
	}
	if err := s.persistIdentity(ctx, identity); err != nil {
		s.logger.Error(ctx, "cache validated identity", err)
	}
	s.mu.Lock()
	if s.token == token {
		s.identity = identity
	}
	s.mu.Unlock()
}

func (s *Store) loadCachedIdentity(ctx context.Context) *backend.Identity {
	raw, ok, err := s.persist.Get(ctx, persist.KeyUser)
	if err != nil {
		s.logger.Error(ctx, "read cached identity", err)
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var identity backend.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		s.logger.Warn(ctx, "cached identity unparsable")
		return nil
	}
	if identity.UserID == 0 && identity.Username == "" && identity.Email == "" {
		return nil
	}
	return &identity
}

// Login authenticates and stores identity and token together. Failures
// set the error field, leave stored state untouched and are returned.
func (s *Store) Login(ctx context.Context, req backend.LoginRequest) (*backend.AuthResponse, error) {
	ctx = s.logger.WithOperation(ctx, "session.login")
	s.update(EventLoading, func() {
		s.loading = true
		s.errMsg = ""
	})

	resp, err := s.remote.Login(ctx, req)
	if err == nil {
		err = s.establish(ctx, resp, EventLogin)
	}
	if err != nil {
		s.fail(ctx, "login failed", err)
		return nil, err
	}
	return resp, nil
}

// Register creates an account and signs it in. The role is sent as chosen
// by the caller and kept as the backend returns it.
func (s *Store) Register(ctx context.Context, req backend.RegisterRequest) (*backend.AuthResponse, error) {
	ctx = s.logger.WithOperation(ctx, "session.register")
	if req.Role == "" {
		req.Role = enums.RoleCustomer
	}
	if req.Role.Is(enums.RoleAdmin) {
		s.logger.Warn(s.logger.WithField(ctx, "username", req.Username), "registration requests ADMIN role; backend must authorize it")
	}
	s.update(EventLoading, func() {
		s.loading = true
		s.errMsg = ""
	})

	resp, err := s.remote.Register(ctx, req)
	if err == nil {
		err = s.establish(ctx, resp, EventRegister)
	}
	if err != nil {
		s.fail(ctx, "registration failed", err)
		return nil, err
	}
	return resp, nil
}

// establish persists identity then token; if either write fails both are
// removed so no half-session survives a restart.
func (s *Store) establish(ctx context.Context, resp *backend.AuthResponse, ev Event) error {
	if err := s.persistIdentity(ctx, resp.User); err != nil {
		return s.rollback(ctx, err)
	}
	if err := s.persist.Set(ctx, persist.KeyToken, resp.Token); err != nil {
		return s.rollback(ctx, err)
	}

	identity := copyIdentity(resp.User)
	s.update(ev, func() {
		s.token = resp.Token
		s.identity = identity
		s.loading = false
		s.errMsg = ""
	})
	s.logger.Info(s.logger.WithUserID(ctx, identityID(identity)), "session established")
	return nil
}

func (s *Store) rollback(ctx context.Context, cause error) error {
	err := multierr.Append(cause, s.persist.Delete(ctx, persist.KeyToken, persist.KeyUser))
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not save session locally")
}

func (s *Store) fail(ctx context.Context, msg string, err error) {
	s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), msg)
	text := authMessage(err)
	s.update(EventError, func() {
		s.loading = false
		s.errMsg = text
	})
}

// Logout tells the backend (ignoring failures) and then always clears
// local state.
func (s *Store) Logout(ctx context.Context) {
	ctx = s.logger.WithOperation(ctx, "session.logout")
	if s.Token() != "" {
		if err := s.remote.Logout(ctx); err != nil {
			s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "backend logout failed")
		}
	}
	s.clear(ctx)
	s.update(EventLogout, func() { s.errMsg = "" })
}

// HandleUnauthorized is called by the REST boundary when an authenticated
// request answers 401. It signs out and emits EventAuthRequired.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	ctx = s.logger.WithOperation(ctx, "session.unauthorized")
	if !s.clear(ctx) {
		return
	}
	s.metrics.IncForcedLogout()
	s.logger.Warn(ctx, "backend rejected credentials; session cleared")
	s.update(EventAuthRequired, func() {
		s.errMsg = pkgerrors.MetadataFor(pkgerrors.CodeUnauthorized).PublicMessage
	})
}

// clear drops token and identity from memory and persistence. It reports
// whether anything was held in memory.
func (s *Store) clear(ctx context.Context) bool {
	s.mu.Lock()
	had := s.token != "" || s.identity != nil
	s.token = ""
	s.identity = nil
	s.loading = false
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Delete(ctx, persist.KeyToken, persist.KeyUser); err != nil {
			s.logger.Error(ctx, "clear persisted session", err)
		}
	}
	return had
}

// ProfileUpdate is a partial profile; nil fields are left unchanged.
type ProfileUpdate struct {
	Username  *string
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
	Avatar    *string
}

// UpdateProfile merges the partial into the current identity locally.
// Id, email and role are never overwritten. When both first and last name
// are supplied the username becomes "first last".
func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) (*backend.Identity, error) {
	ctx = s.logger.WithOperation(ctx, "session.update_profile")
	current := s.Identity()
	if current == nil || s.Token() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}

	merged := *current
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&merged.Username, update.Username)
	apply(&merged.FirstName, update.FirstName)
	apply(&merged.LastName, update.LastName)
	apply(&merged.Phone, update.Phone)
	apply(&merged.Address, update.Address)
	apply(&merged.Avatar, update.Avatar)
	if update.FirstName != nil && update.LastName != nil && merged.FirstName != "" && merged.LastName != "" {
		merged.Username = fmt.Sprintf("%s %s", merged.FirstName, merged.LastName)
	}
	merged.UserID, merged.Email, merged.Role = current.UserID, current.Email, current.Role

	if err := s.persistIdentity(ctx, &merged); err != nil {
		s.logger.Error(ctx, "persist profile", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not save profile locally")
	}
	s.update(EventProfileUpdated, func() {
		if s.identity != nil && s.identity.UserID == merged.UserID {
			s.identity = copyIdentity(&merged)
		}
	})
	return copyIdentity(&merged), nil
}

// ForgotPassword requests a reset link for email.
func (s *Store) ForgotPassword(ctx context.Context, email string) (string, error) {
	ctx = s.logger.WithOperation(ctx, "session.forgot_password")
	if strings.TrimSpace(email) == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "Email is required").
			WithDetails(map[string]string{"email": "Email is required"})
		s.fail(ctx, "forgot password rejected", err)
		return "", err
	}
	msg, err := s.remote.ForgotPassword(ctx, email)
	if err != nil {
		s.fail(ctx, "forgot password failed", err)
		return "", err
	}
	return msg, nil
}

// ResetPassword sets a new password using a reset token.
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	ctx = s.logger.WithOperation(ctx, "session.reset_password")
	if strings.TrimSpace(token) == "" || newPassword == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "Reset token and new password are required")
		s.fail(ctx, "reset password rejected", err)
		return "", err
	}
	msg, err := s.remote.ResetPassword(ctx, token, newPassword)
	if err != nil {
		s.fail(ctx, "reset password failed", err)
		return "", err
	}
	return msg, nil
}

// ValidateResetToken reports whether a reset token is still usable.
// Backend failures count as invalid.
func (s *Store) ValidateResetToken(ctx context.Context, token string) bool {
	ctx = s.logger.WithOperation(ctx, "session.validate_reset_token")
	if strings.TrimSpace(token) == "" {
		return false
	}
	ok, err := s.remote.ValidateResetToken(ctx, token)
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "reset token check failed")
		return false
	}
	return ok
}

func (s *Store) persistIdentity(ctx context.Context, identity *backend.Identity) error {
	if identity == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "identity is required")
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return s.persist.Set(ctx, persist.KeyUser, string(raw))
}

// authMessage keeps the backend's explanation for credential failures
// ("Invalid username or password") instead of the generic re-login text.
func authMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeUnauthorized && typed.Message() != "" {
		return typed.Message()
	}
	return pkgerrors.UserMessage(err)
}

func copyIdentity(in *backend.Identity) *backend.Identity {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func identityID(identity *backend.Identity) int64 {
	if identity == nil {
		return 0
	}
	return identity.UserID
}
