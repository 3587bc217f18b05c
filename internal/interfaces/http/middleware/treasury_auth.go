package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/javila-dev/rojoz/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Treasury context keys
const (
	TreasuryCallerKey = "treasury_caller"
	APIKeyHeader      = "X-API-Key"
)

// TreasuryAuthMiddleware gates the external treasury intake surface with the
// platform API token. The token may arrive as a Bearer credential or in the
// X-API-Key header. An unconfigured verifier rejects every request rather
// than failing open.
func TreasuryAuthMiddleware(verifier *auth.TreasuryTokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractTreasuryToken(c)
		if token == "" {
			treasuryAuthError(c, logger, "Missing treasury API token")
			return
		}

		if !verifier.Configured() {
			if logger != nil {
				logger.Error("treasury API token not configured, rejecting request",
					zap.String("path", c.Request.URL.Path),
				)
			}
			treasuryAuthError(c, logger, "Treasury authentication is not configured")
			return
		}

		if !verifier.Verify(token) {
			treasuryAuthError(c, logger, "Invalid treasury API token")
			return
		}

		c.Set(TreasuryCallerKey, "treasury")
		c.Next()
	}
}

// extractTreasuryToken pulls the API token from the Authorization header
// (Bearer scheme) or the X-API-Key header.
func extractTreasuryToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthHeaderKey)
	if strings.HasPrefix(authHeader, BearerPrefix) {
		if token := strings.TrimPrefix(authHeader, BearerPrefix); token != "" {
			return token
		}
	}
	return c.GetHeader(APIKeyHeader)
}

func treasuryAuthError(c *gin.Context, logger *zap.Logger, message string) {
	if logger != nil {
		logger.Warn("treasury authentication failed",
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
