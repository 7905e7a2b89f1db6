package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mealmate/server/internal/api/respond"
	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/service"
)

type contextKey string

const (
	UserKey contextKey = "user"
)

// Authenticator resolves a bearer token to the current user row.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Auth rejects requests without a valid session token for an ACTIVE user.
// The user is looked up on every request, so deleting an account locks out
// tokens issued before the deletion.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				slog.WarnContext(r.Context(), "missing or malformed authorization header", "path", r.URL.Path)
				respond.Error(w, http.StatusUnauthorized, respond.CodeMissingToken, "Authorization token required")
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		respond.Error(w, http.StatusUnauthorized, respond.CodeTokenExpired, "Token expired")
	case errors.Is(err, service.ErrTokenInvalid):
		slog.WarnContext(r.Context(), "session token rejected", "error", err)
		respond.Error(w, http.StatusForbidden, respond.CodeTokenInvalid, "Invalid token")
	case errors.Is(err, service.ErrUserNotFound):
		respond.Error(w, http.StatusNotFound, respond.CodeUserNotFound, "User not found")
	case errors.Is(err, service.ErrAccountInactive):
		respond.Error(w, http.StatusForbidden, respond.CodeAccountInactive, "Account is inactive")
	default:
		slog.ErrorContext(r.Context(), "session authentication failed", "error", err)
		respond.InternalError(w)
	}
}

// GetUser returns the user attached by Auth.
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok
}
