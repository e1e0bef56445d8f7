package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pgvplaning/backend/pkg/jwt"
	"pgvplaning/backend/pkg/response"
)

// Context keys set by JWTAuth.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserName  = "user_name"
	ContextRole      = "role"
)

// JWTAuth verifies the identity provider's access token from
// Authorization: Bearer <token> and injects the caller into the context.
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "en-tête d'authentification manquant")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, 10002, "format d'en-tête d'authentification invalide")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			msg := "jeton invalide"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "session expirée, veuillez vous reconnecter"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserName, claims.DisplayName())
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// UserSyncer mirrors the authenticated identity locally.
type UserSyncer interface {
	Sync(ctx context.Context, userID, name, email string) error
}

// SyncUser upserts the caller's local row after JWTAuth so teams and
// calendars can reference it.
func SyncUser(users UserSyncer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if err := users.Sync(c.Request.Context(), userID, c.GetString(ContextUserName), c.GetString(ContextUserEmail)); err != nil {
			logger.Warn("synchronisation du compte impossible", zap.String("user_id", userID), zap.Error(err))
			response.Unauthorized(c, 10002, "identité incomplète, veuillez vous reconnecter")
			c.Abort()
			return
		}
		c.Next()
	}
}
