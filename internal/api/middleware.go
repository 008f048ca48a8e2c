package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/logger"
)

// requireIdentity verifies the bearer token and stores the identity in the
// request context. Browsers cannot set headers on websocket upgrades, so
// the access_token query parameter is accepted too.
func requireIdentity(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" || issuer == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := issuer.Verify(token)
		if err != nil {
			logger.Debug("Rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		keyvals := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if id, ok := auth.FromContext(c.Request.Context()); ok {
			keyvals = append(keyvals, "user", id.UserID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("HTTP request", keyvals...)
			return
		}
		logger.Info("HTTP request", keyvals...)
	}
}

func recoverJSON(c *gin.Context, recovered interface{}) {
	logger.Error("Handler panicked", "path", c.Request.URL.Path, "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
