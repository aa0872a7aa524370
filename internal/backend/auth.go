package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
)

// LoginRequest carries either a username or an email with the password.
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      enums.Role `json:"role"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Phone     string     `json:"phone,omitempty"`
}

// AuthResponse is the normalized login/register answer.
type AuthResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Token   string    `json:"token"`
	User    *Identity `json:"user"`
}

type authWire struct {
	envelope
	Token string        `json:"token"`
	User  *identityWire `json:"user"`
	Role  string        `json:"role"`
}

func (w authWire) normalize(op string) (*AuthResponse, error) {
	if w.failed() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, w.text(op+" failed"))
	}
	token := strings.TrimSpace(w.Token)
	user := w.User.normalize(w.Role)
	if token == "" || user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, op+" response missing token or user")
	}
	return &AuthResponse{
		Success: true,
		Message: w.Message,
		Token:   token,
		User:    user,
	}, nil
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var wire authWire
	if err := c.doJSON(ctx, call{endpoint: "auth.login", method: http.MethodPost, path: "/auth/login", body: req}, &wire); err != nil {
		return nil, err
	}
	return wire.normalize("login")
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var wire authWire
	if err := c.doJSON(ctx, call{endpoint: "auth.register", method: http.MethodPost, path: "/auth/register", body: req}, &wire); err != nil {
		return nil, err
	}
	return wire.normalize("registration")
}

// Logout calls POST /auth/logout. Callers treat failures as best-effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, call{endpoint: "auth.logout", method: http.MethodPost, path: "/auth/logout"}, nil)
}

// ValidateToken calls GET /auth/validate and returns the identity behind
// the current bearer token. Only an explicit valid=true is accepted.
func (c *Client) ValidateToken(ctx context.Context) (*Identity, error) {
	var wire struct {
		envelope
		Valid *bool         `json:"valid"`
		User  *identityWire `json:"user"`
	}
	if err := c.doJSON(ctx, call{endpoint: "auth.validate", method: http.MethodGet, path: "/auth/validate"}, &wire); err != nil {
		return nil, err
	}
	if wire.failed() || wire.Valid == nil || !*wire.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, wire.text("token is no longer valid"))
	}
	user := wire.User.normalize("")
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "validate response missing user")
	}
	return user, nil
}

// ForgotPassword calls POST /auth/forgot-password and returns the backend message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var wire envelope
	body := map[string]string{"email": strings.TrimSpace(email)}
	if err := c.doJSON(ctx, call{endpoint: "auth.forgot_password", method: http.MethodPost, path: "/auth/forgot-password", body: body}, &wire); err != nil {
		return "", err
	}
	if wire.failed() {
		return "", businessError(wire, "password reset request failed")
	}
	return wire.Message, nil
}

// ResetPassword calls POST /auth/reset-password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var wire envelope
	body := map[string]string{"token": token, "newPassword": newPassword}
	if err := c.doJSON(ctx, call{endpoint: "auth.reset_password", method: http.MethodPost, path: "/auth/reset-password", body: body}, &wire); err != nil {
		return "", err
	}
	if wire.failed() {
		return "", businessError(wire, "password reset failed")
	}
	return wire.Message, nil
}

// ValidateResetToken calls GET /auth/validate-reset-token.
func (c *Client) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	var wire struct {
		envelope
		Valid *bool `json:"valid"`
	}
	q := url.Values{"token": []string{token}}
	if err := c.doJSON(ctx, call{endpoint: "auth.validate_reset_token", method: http.MethodGet, path: "/auth/validate-reset-token", query: q}, &wire); err != nil {
		return false, err
	}
	if wire.Valid != nil {
		return *wire.Valid, nil
	}
	return !wire.failed(), nil
}
