// Package middleware holds the request guards mounted by the API router.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/isdelr/accounts-be/internal/api/respond"
	"github.com/isdelr/accounts-be/internal/apperrors"
	"github.com/isdelr/accounts-be/internal/models"
	"github.com/isdelr/accounts-be/internal/services"
	"github.com/rs/zerolog/hlog"
)

type contextKey string

// PrincipalKey is the context key for the authenticated user.
const PrincipalKey = contextKey("principal")

// PrincipalFrom returns the user resolved by RequireUser.
func PrincipalFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(PrincipalKey).(models.User)
	return user, ok
}

// WithPrincipal stores user as the request principal.
func WithPrincipal(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, PrincipalKey, user)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireUser resolves the bearer token to a stored user and rejects the
// request with 401 when that fails.
func RequireUser(authService services.AuthServiceProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respond.Unauthorized(w)
				return
			}

			user, err := authService.ResolvePrincipal(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperrors.ErrAuthFailure) {
					hlog.FromRequest(r).Debug().Msg("Rejected bearer token")
				}
				respond.Error(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
		})
	}
}

// RequireAdmin must run after RequireUser. Non-admin principals get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := PrincipalFrom(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}
		if !user.IsAdmin {
			hlog.FromRequest(r).Warn().Int64("user_id", user.ID).Msg("Admin route denied")
			respond.Error(w, r, apperrors.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
