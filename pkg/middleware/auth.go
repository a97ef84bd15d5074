package middleware

import (
	"strings"

	"helpdesk-inbox/backend/pkg/errors"
	"helpdesk-inbox/backend/pkg/jwt"
	"helpdesk-inbox/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	ClaimsKey     = "claims"
	OperatorIDKey = "operatorId"
)

// TokenValidator is satisfied by *jwt.Service.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// BearerToken strips an optional "Bearer " prefix from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// JWTAuthMiddleware checks that the request has a valid operator token and adds claims to the context
func JWTAuthMiddleware(tokens TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			_ = c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", "error", err.Error(), "path", c.Request.URL.Path)
			_ = c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(OperatorIDKey, claims.OperatorID)
		c.Next()
	}
}

// OperatorID returns the authenticated operator id stored by JWTAuthMiddleware.
func OperatorID(c *gin.Context) string {
	return c.GetString(OperatorIDKey)
}
