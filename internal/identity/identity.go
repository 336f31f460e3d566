// Package identity supplies the opaque user identifier the ledger is keyed by.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a custom token cannot be verified.
var ErrInvalidToken = errors.New("invalid auth token")

const anonymousPrefix = "anon-"

// Identity is a resolved user.
type Identity struct {
	UserID    string `json:"userId"`
	Anonymous bool   `json:"anonymous"`
}

// Resolver turns custom tokens into identities and mints anonymous ones.
type Resolver struct {
	secret []byte
	now    func() time.Time
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret), now: time.Now}
}

// Resolve verifies token when present; without a token an anonymous identity is issued.
func (r *Resolver) Resolve(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous(), nil
	}
	if len(r.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(r.now))
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if strings.Contains(claims.Subject, "/") {
		return Identity{}, fmt.Errorf("%w: subject %q is not a valid user id", ErrInvalidToken, claims.Subject)
	}
	return Identity{UserID: claims.Subject}, nil
}

// Anonymous issues a fresh anonymous identity.
func Anonymous() Identity {
	return Identity{UserID: anonymousPrefix + uuid.NewString(), Anonymous: true}
}

// IsAnonymousID reports whether id was minted by Anonymous.
func IsAnonymousID(id string) bool {
	if !strings.HasPrefix(id, anonymousPrefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(id, anonymousPrefix))
	return err == nil
}

// Issue mints an HS256 token for userID. A zero ttl yields a token without expiry.
func Issue(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret required")
	}
	if strings.Contains(userID, "/") {
		return "", fmt.Errorf("user id %q must not contain '/'", userID)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
