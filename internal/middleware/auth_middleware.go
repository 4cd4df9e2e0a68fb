package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/jwtutil"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/response"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// AuthMiddleware resolves a bearer token into a Principal. A token is only
// good while its session record is still in Redis, so logout takes effect
// immediately even on tokens that have not expired.
type AuthMiddleware struct {
	jwt      *jwtutil.Manager
	sessions repository.SessionRepository
	logger   *zap.Logger
}

func NewAuthMiddleware(jwt *jwtutil.Manager, sessions repository.SessionRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, sessions: sessions, logger: logger}
}

func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return q
	}
	return ""
}

// Authenticate validates the token and its session, then stores the
// Principal in the request context for the handlers and role guards.
func (am *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := am.jwt.ParseAndValidate(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		sess, err := am.sessions.Get(r.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, xerrors.ErrSessionExpired) {
				response.Error(w, http.StatusUnauthorized, "Session expired")
				return
			}
			am.logger.Error("session lookup failed",
				zap.String("session_id", claims.SessionID),
				zap.Error(err),
			)
			response.Error(w, http.StatusInternalServerError, "Session validation failed")
			return
		}

		userID, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil || userID != sess.UserID {
			response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		// the session record is the authority on role, not the claims
		p := domain.Principal{
			UserID:    userID,
			Role:      domain.Role(sess.Role),
			SessionID: claims.SessionID,
		}
		next.ServeHTTP(w, setContextValues(r, p, token))
	})
}

// RequireRole gates a route to the given roles. Must run after Authenticate.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "No token provided")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, http.StatusForbidden, "insufficient role")
		})
	}
}

func RequireTeacher() func(http.Handler) http.Handler {
	return RequireRole(domain.RoleTeacher)
}

func RequireStudent() func(http.Handler) http.Handler {
	return RequireRole(domain.RoleStudent)
}
