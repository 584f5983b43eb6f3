package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the admin API. adminToken, when non-empty, is required as a
// bearer token on every /api/admin route.
func NewRouter(h *Handler, adminToken string, logger *logrus.Entry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", h.health)

	admin := r.Group("/api/admin", requireToken(adminToken))
	{
		admin.GET("/notifications", h.listNotifications)
		admin.GET("/notifications/stats", h.getStats)
		admin.POST("/notifications/run", h.runNow)
		admin.GET("/notifications/:id", h.getNotification)

		admin.GET("/notification-settings", h.getSettings)
		admin.PUT("/notification-settings", h.updateSettings)
		admin.POST("/notification-settings/test", h.sendTest)
	}
	return r
}

func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func requestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}).Info("HTTP request")
	}
}
