package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/linkdeck/internal/common"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated caller attached to the request context by
// RequireAuth. It is a projection, never the full user record.
type Identity struct {
	UserID string
	Email  string
}

// IdentityFromContext extracts the authenticated identity from the request
// context. The second return is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// extractBearer pulls the token out of an Authorization header. The
// "Bearer <token>" form is canonical; a bare token is tolerated.
func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return header
}

// authenticate runs the full guard chain: bearer extraction, access token
// verification, user load, active check.
func (s *Server) authenticate(r *http.Request) (Identity, int, string) {
	tok := extractBearer(r.Header.Get("Authorization"))
	if tok == "" {
		return Identity{}, http.StatusUnauthorized, "no token provided"
	}

	claims, err := s.codec.VerifyAccess(tok)
	if err != nil {
		return Identity{}, http.StatusUnauthorized, "invalid or expired token"
	}

	user, err := s.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Identity{}, http.StatusUnauthorized, "user does not exist"
		}
		return Identity{}, http.StatusInternalServerError, "internal server error"
	}
	if !user.IsActive {
		return Identity{}, http.StatusForbidden, "account is disabled"
	}

	return Identity{UserID: user.ID, Email: user.Email}, 0, ""
}

// RequireAuth protects routes that demand an authenticated caller. The
// rejection always short-circuits before the wrapped handler runs.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, status, msg := s.authenticate(r)
		if status != 0 {
			s.writeError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// OptionalAuth attaches an identity when a valid token is present and lets
// anonymous requests pass through untouched.
func (s *Server) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, status, _ := s.authenticate(r); status == 0 {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
		}
		next.ServeHTTP(w, r)
	})
}
