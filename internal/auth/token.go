// Package auth issues and verifies the bearer tokens handed out by
// /users/register and /users/auth.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cinehub/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserUID   int64  `json:"userUID"`
	UserEmail string `json:"userEmail"`
	Username  string `json:"username"`
	UserTier  string `json:"userTier"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into the caller passed to services.
func (c *Claims) Identity() models.CallerIdentity {
	return models.CallerIdentity{
		UserUID:  c.UserUID,
		Username: c.Username,
		IsAdmin:  c.UserTier == models.AdminTier,
	}
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for u.
func (t *TokenIssuer) Issue(u models.User) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		UserUID:   u.UserUID,
		UserEmail: u.UserEmail,
		Username:  u.Username,
		UserTier:  u.UserTier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(u.UserUID),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the signature and expiry of a token.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserUID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
