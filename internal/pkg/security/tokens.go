// Package security issues and validates the signed bearer tokens handed out
// after a successful Discord login.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/plexdev/plexaddons-api/internal/pkg/env"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is what a bearer token asserts about its holder. The tier is
// deliberately absent: effective tier is resolved from the database on every
// request so temp-tier grants and expiries apply immediately.
type TokenClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// TokenIssuer signs and validates HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenIssuer() *TokenIssuer {
	expiry := 24 * time.Hour
	if hours := env.GetEnv("JWT_EXPIRY_HOURS", ""); hours != "" {
		if d, err := time.ParseDuration(hours + "h"); err == nil {
			expiry = d
		}
	}
	return &TokenIssuer{
		secret: []byte(env.GetEnv("JWT_SECRET", "")),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue creates a signed token for the user.
func (t *TokenIssuer) Issue(claims TokenClaims) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("JWT_SECRET is not configured")
	}

	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  claims.UserID,
		"username": claims.Username,
		"is_admin": claims.IsAdmin,
		"exp":      now.Add(t.expiry).Unix(),
		"iat":      now.Unix(),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string and returns its claims.
func (t *TokenIssuer) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := mapClaims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, ErrInvalidToken
	}
	username, _ := mapClaims["username"].(string)
	isAdmin, _ := mapClaims["is_admin"].(bool)

	return &TokenClaims{
		UserID:   uint(userID),
		Username: username,
		IsAdmin:  isAdmin,
	}, nil
}
