package middleware

import (
	"net/http"
	"strings"

	"civicconnect/internal/models"
	"civicconnect/internal/utils"
	"civicconnect/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth
const (
	ContextActor  = "actor"
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// TokenFromRequest extracts an access token from the Authorization header, the
// token query parameter or the access cookie, in that order.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
			return strings.TrimSpace(token)
		}
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil {
			return token
		}
	}
	return ""
}

// JWTAuth validates the access token and stores the caller's Actor in the context.
func JWTAuth(jwtManager *utils.JWTManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := TokenFromRequest(c, cookieName)
		if tokenString == "" {
			utils.UnauthorizedResponse(c, "Missing access token")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateUserJWT(tokenString)
		if err != nil {
			logger.LogSecurityEvent("invalid_token", "", c.ClientIP(), map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid token claims")
			c.Abort()
			return
		}

		c.Set(ContextActor, actor)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles. Must run after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}

		logger.LogSecurityEvent("role_denied", c.GetString(ContextUserID), c.ClientIP(), map[string]interface{}{
			"path":     c.Request.URL.Path,
			"role":     role,
			"required": roles,
		})
		utils.ErrorResponse(c, http.StatusForbidden, "Insufficient role")
		c.Abort()
	}
}

// ActorFrom returns the Actor stored by JWTAuth.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
