// internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/auth"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/model"
	"github.com/refera-hq/refera/internal/rbac"
	"github.com/refera-hq/refera/internal/repository"
)

type contextKey string

const (
	// UserIDKey carries the authenticated directory user ID.
	UserIDKey contextKey = "refera_user_id"
	// UserEmailKey carries the authenticated email.
	UserEmailKey contextKey = "refera_user_email"
	// MembershipKey carries the caller's membership in the routed organization.
	MembershipKey contextKey = "refera_membership"
)

// AuthMiddleware creates a middleware that validates directory-issued JWT
// tokens.
func AuthMiddleware(tokenManager *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "No authorization header")
				return
			}

			// Check Bearer prefix
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}

			// Validate token
			claims, err := tokenManager.Validate(parts[1])
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MembershipMiddleware resolves the caller's membership in the organization
// named by the orgID route parameter and stores it in the request context.
func MembershipMiddleware(membershipRepo repository.MembershipRepositoryIface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
				return
			}

			rawUserID, _ := r.Context().Value(UserIDKey).(string)
			userID, err := uuid.Parse(rawUserID)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid user identity")
				return
			}

			membership, err := membershipRepo.FindByOrgAndUser(r.Context(), orgID, userID)
			if err != nil {
				if errors.Is(err, domain.ErrMembershipNotFound) {
					respondWithError(w, http.StatusForbidden, "Not a member of this organization")
					return
				}
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), MembershipKey, membership)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces the role threshold on the membership loaded by
// MembershipMiddleware.
func RequireRole(threshold model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			membership, _ := r.Context().Value(MembershipKey).(*model.Membership)
			if err := rbac.RequireRoleAtLeast(membership, threshold); err != nil {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MembershipFromContext returns the membership stored by
// MembershipMiddleware.
func MembershipFromContext(ctx context.Context) *model.Membership {
	membership, _ := ctx.Value(MembershipKey).(*model.Membership)
	return membership
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
