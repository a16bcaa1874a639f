// Package auth provides bearer-token identity for the platform. The
// identity provider itself lives elsewhere; this package only validates
// the HS256 tokens it issues and makes the caller's user id available
// as explicit request context, never ambient state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthRequired is returned when no valid identity accompanies a request.
var ErrAuthRequired = errors.New("authentication required")

type contextKey struct{}

// Verifier validates tokens and stamps requests with the caller identity.
type Verifier struct {
	secret     []byte
	expiration time.Duration
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string, expiration time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), expiration: expiration}
}

// IssueToken mints a token for the given user id. Exposed for tests and
// local tooling; production tokens come from the identity provider.
func (v *Verifier) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.expiration)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ParseToken validates a token string and returns the subject user id.
func (v *Verifier) ParseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.secret, nil
		})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrAuthRequired
	}
	return claims.Subject, nil
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID extracts the authenticated user id from the context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Middleware parses an Authorization: Bearer token when present and, on
// success, attaches the user id to the request context. Requests
// without a token pass through unauthenticated; handlers that need an
// identity enforce it via RequireUser.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
			if userID, err := v.ParseToken(strings.TrimSpace(raw)); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
		}
		next.ServeHTTP(w, r)
	})
}
