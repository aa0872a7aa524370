package devserver

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/auth"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/security"
)

const msgInvalidCredentials = "Invalid username or password"

// User is the public account profile.
type User struct {
	UserID    int64      `json:"userId"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Phone     string     `json:"phone,omitempty"`
}

type account struct {
	User
	passwordHash string
}

type resetToken struct {
	userID    int64
	expiresAt time.Time
}

// RegisterInput is the account creation payload.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
	Phone     string
}

// LoginInput identifies the account by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Session is a freshly minted credential and the account it belongs to.
type Session struct {
	Token string
	User  User
}

// Register creates an account and signs it in. A client-selected ADMIN
// role is honored and logged.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := enums.RoleCustomer
	if strings.TrimSpace(in.Role) != "" {
		parsed, err := enums.ParseRole(in.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid role").
				WithDetails(map[string]string{"role": "must be CUSTOMER or ADMIN"})
		}
		role = parsed
	}

	hash, err := security.HashPassword(in.Password, s.params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	s.mu.Lock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, username) {
			s.mu.Unlock()
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Username already exists")
		}
		if existing.Email == email {
			s.mu.Unlock()
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Email already registered")
		}
	}
	s.nextUserID++
	acct := &account{
		User: User{
			UserID:    s.nextUserID,
			Username:  username,
			Email:     email,
			Role:      role,
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Phone:     strings.TrimSpace(in.Phone),
		},
		passwordHash: hash,
	}
	s.users[acct.UserID] = acct
	s.mu.Unlock()

	if role.Is(enums.RoleAdmin) {
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{"user_id": acct.UserID, "username": username}), "devserver.register.self_selected_admin")
	}
	return s.issue(acct.User)
}

// Login verifies the password of the account named by username or email.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	ident := strings.TrimSpace(in.Username)
	if ident == "" {
		ident = strings.TrimSpace(in.Email)
	}
	if ident == "" || in.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidCredentials)
	}

	s.mu.Lock()
	var found *account
	for _, acct := range s.users {
		if strings.EqualFold(acct.Username, ident) || strings.EqualFold(acct.Email, ident) {
			found = acct
			break
		}
	}
	var hash string
	var user User
	if found != nil {
		hash, user = found.passwordHash, found.User
	}
	s.mu.Unlock()

	if found == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidCredentials)
	}
	ok, err := security.VerifyPassword(in.Password, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgInvalidCredentials)
	}
	return s.issue(user)
}

func (s *Service) issue(user User) (*Session, error) {
	token, err := auth.MintAccessToken(s.cfg, s.now(), auth.AccessTokenPayload{
		UserID:   user.UserID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &Session{Token: token, User: user}, nil
}

// Revoke invalidates a token id until its natural expiry.
func (s *Service) Revoke(ctx context.Context, jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = expiresAt
}

// PurgeExpired drops reset tokens and revoked token ids whose lifetime has
// passed and reports how many of each were removed.
func (s *Service) PurgeExpired(ctx context.Context) (resetTokens, revokedSessions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for tok, rt := range s.resetTokens {
		if !rt.expiresAt.After(now) {
			delete(s.resetTokens, tok)
			resetTokens++
		}
	}
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
			revokedSessions++
		}
	}
	return resetTokens, revokedSessions
}

// HasSession reports whether the token id has not been revoked.
func (s *Service) HasSession(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, revoked := s.revoked[jti]
	return !revoked, nil
}

// User returns the profile behind a user id.
func (s *Service) User(ctx context.Context, userID int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[userID]
	if !ok {
		return User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "User no longer exists")
	}
	return acct.User, nil
}

// ForgotPassword issues a one-hour reset token for the account behind email,
// replacing any earlier token for that account.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()
	var userID int64
	for _, acct := range s.users {
		if acct.Email == email {
			userID = acct.UserID
			break
		}
	}
	if userID == 0 {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "User with this email not found")
	}
	for tok, rt := range s.resetTokens {
		if rt.userID == userID {
			delete(s.resetTokens, tok)
		}
	}
	token, err := security.NewResetToken()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	s.resetTokens[token] = resetToken{userID: userID, expiresAt: s.now().Add(resetTokenTTL)}
	return token, nil
}

// ValidateResetToken reports whether token is known and unexpired.
// Expired tokens are discarded.
func (s *Service) ValidateResetToken(ctx context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.resetTokens[token]
	if !ok {
		return false
	}
	if !rt.expiresAt.After(s.now()) {
		delete(s.resetTokens, token)
		return false
	}
	return true
}

// ResetPassword consumes token and replaces the account password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := security.HashPassword(newPassword, s.params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.resetTokens[token]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid or expired reset token")
	}
	delete(s.resetTokens, token)
	if !rt.expiresAt.After(s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "Reset token has expired")
	}
	acct, ok := s.users[rt.userID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
	}
	acct.passwordHash = hash
	return nil
}
