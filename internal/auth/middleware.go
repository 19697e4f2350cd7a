package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/gosafar/travel-api/internal/httputil"
	"github.com/gosafar/travel-api/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	UserIDContextKey    ContextKey = "user_id"
	UserEmailContextKey ContextKey = "user_email"
)

// Middleware gates protected routes on a valid session cookie.
type Middleware struct {
	tokenService TokenService
}

func NewMiddleware(tokenService TokenService) *Middleware {
	return &Middleware{tokenService: tokenService}
}

// RequireAuth verifies the session cookie before the handler runs. A missing
// cookie is 401; a present but invalid or expired token is 403. On success
// the resolved user id and email are attached to the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token, err := GetSessionTokenFromCookie(r)
		if err != nil || token == "" {
			httputil.RespondErrorWithCode(w, "you are not authenticated", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.VerifyToken(token)
		if err != nil {
			// The client gets the same answer for expired and tampered
			// tokens; only the log tells them apart.
			if err == ErrExpiredToken {
				logger.Warn("session token expired")
			} else {
				logger.Warn("session token rejected")
			}
			httputil.RespondErrorWithCode(w, "token is not valid", httputil.CodeInvalidToken, http.StatusForbidden)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			logger.Warn("session token carries malformed user id")
			httputil.RespondErrorWithCode(w, "token is not valid", httputil.CodeInvalidToken, http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		ctx = context.WithValue(ctx, UserEmailContextKey, claims.Email)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// GetUserEmailFromContext extracts the user email from the request context
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailContextKey).(string)
	return email, ok
}
