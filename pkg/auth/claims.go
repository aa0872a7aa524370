package auth

import (
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   int64
	Username string
	Role     enums.Role
}

// AccessTokenClaims represents the typed JWT issued by the dev backend.
type AccessTokenClaims struct {
	UserID   int64      `json:"user_id"`
	Username string     `json:"username"`
	Role     enums.Role `json:"role"`
	jwt.RegisteredClaims
}
