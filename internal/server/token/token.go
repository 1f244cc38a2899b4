// Package token signs and verifies the two credential kinds used by
// linkdeck: short-lived access tokens and long-lived refresh tokens.
// The kinds use independent secrets, so a leaked access token cannot be
// used to mint new refresh tokens.
package token

import (
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard registered claims plus the linkdeck user
// identity embedded into every token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

// Codec issues and verifies HS256-signed access and refresh tokens.
// It is pure and stateless; a single instance is safe for concurrent use.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewCodec builds a Codec with independent secrets and lifetimes for the
// access and refresh kinds.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess mints a short-lived access token for the given user.
func (c *Codec) IssueAccess(userID, email string) (string, error) {
	return issue(userID, email, c.accessSecret, c.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the given user.
func (c *Codec) IssueRefresh(userID, email string) (string, error) {
	return issue(userID, email, c.refreshSecret, c.refreshTTL)
}

// VerifyAccess checks signature and expiry of an access token. Every failure
// mode (bad signature, malformed input, expiry, token of the other kind)
// collapses into common.ErrInvalidToken so callers cannot distinguish them.
func (c *Codec) VerifyAccess(tokenString string) (*Claims, error) {
	return verify(tokenString, c.accessSecret)
}

// VerifyRefresh checks signature and expiry of a refresh token.
func (c *Codec) VerifyRefresh(tokenString string) (*Claims, error) {
	return verify(tokenString, c.refreshSecret)
}

func issue(userID, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
	})
	return t.SignedString(secret)
}

func verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
