package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/api/middleware"
	"github.com/angelmondragon/salessavvy-storefront/api/responses"
	"github.com/angelmondragon/salessavvy-storefront/api/validators"
	"github.com/angelmondragon/salessavvy-storefront/internal/devserver"
	pkgAuth "github.com/angelmondragon/salessavvy-storefront/pkg/auth"
	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// AccountService is the account surface behind /auth.
type AccountService interface {
	Register(ctx context.Context, in devserver.RegisterInput) (*devserver.Session, error)
	Login(ctx context.Context, in devserver.LoginInput) (*devserver.Session, error)
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time)
	User(ctx context.Context, userID int64) (devserver.User, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ValidateResetToken(ctx context.Context, token string) bool
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role"`
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
	Phone     string `json:"phone" validate:"max=20"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func AuthLogin(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.Login(r.Context(), devserver.LoginInput{
			Username: body.Username,
			Email:    body.Email,
			Password: body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, responses.Body{
			"message": "Login successful",
			"token":   sess.Token,
			"user":    sess.User,
		})
	}
}

func AuthRegister(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.Register(r.Context(), devserver.RegisterInput{
			Username:  validators.SanitizeString(body.Username, 50),
			Email:     body.Email,
			Password:  body.Password,
			Role:      body.Role,
			FirstName: validators.SanitizeString(body.FirstName, 50),
			LastName:  validators.SanitizeString(body.LastName, 50),
			Phone:     validators.SanitizeString(body.Phone, 20),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, responses.Body{
			"message": "Registration successful",
			"token":   sess.Token,
			"user":    sess.User,
		})
	}
}

// AuthLogout revokes the presented token when it is valid. It always
// succeeds so clients can clear local state unconditionally.
func AuthLogout(svc AccountService, cfg config.DevServerConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			raw = strings.TrimSpace(raw[7:])
		}
		if raw != "" {
			if claims, err := pkgAuth.ParseAccessToken(cfg, raw); err == nil {
				var exp time.Time
				if claims.ExpiresAt != nil {
					exp = claims.ExpiresAt.Time
				}
				svc.Revoke(r.Context(), claims.ID, exp)
			}
		}
		responses.WriteSuccess(w, responses.Body{"message": "Logged out successfully"})
	}
}

// AuthValidate answers for the bearer token already checked by middleware.Auth.
func AuthValidate(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.User(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{"valid": true, "user": user})
	}
}

func AuthMe(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.User(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{"user": user})
	}
}

// AuthForgotPassword issues a reset token. There is no mail delivery; the
// token is logged for local use.
func AuthForgotPassword(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body forgotPasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := svc.ForgotPassword(r.Context(), body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "reset_token", token), "devserver.password_reset.issued")
		}
		responses.WriteSuccess(w, responses.Body{"message": "Password reset email sent successfully"})
	}
}

func AuthResetPassword(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body resetPasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ResetPassword(r.Context(), body.Token, body.NewPassword); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{"message": "Password reset successfully"})
	}
}

func AuthValidateResetToken(svc AccountService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token is required").
				WithDetails(map[string]string{"token": "is required"}))
			return
		}
		valid := svc.ValidateResetToken(r.Context(), token)
		msg := "Token is valid"
		if !valid {
			msg = "Invalid or expired token"
		}
		responses.WriteSuccess(w, responses.Body{"valid": valid, "message": msg})
	}
}
