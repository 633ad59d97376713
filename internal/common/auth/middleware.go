// internal/common/auth/middleware.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apperrors "jelita/internal/common/errors"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type ErrorWriter interface {
	HandleHTTPError(w http.ResponseWriter, r *http.Request, err error)
}

type Middleware struct {
	tokens *TokenManager
	errs   ErrorWriter
}

func NewMiddleware(tokens *TokenManager, errs ErrorWriter) *Middleware {
	return &Middleware{tokens: tokens, errs: errs}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", apperrors.NewAuthenticationError("missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperrors.NewAuthenticationError("invalid Authorization header format")
	}
	return parts[1], nil
}

func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			m.errs.HandleHTTPError(w, r, err)
			return
		}

		p, err := m.tokens.Parse(token)
		if err != nil {
			m.errs.HandleHTTPError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Require authenticates the caller and checks the capability before next runs.
func (m *Middleware) Require(c Capability, next http.HandlerFunc) http.Handler {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if !p.Can(c) {
			m.errs.HandleHTTPError(w, r, apperrors.NewAuthorizationError(
				fmt.Sprintf("role %s may not %s", p.Role, c)))
			return
		}
		next(w, r)
	}))
}

// Authenticated only requires a valid token; ownership checks happen in the service.
func (m *Middleware) Authenticated(next http.HandlerFunc) http.Handler {
	return m.Authenticate(next)
}
