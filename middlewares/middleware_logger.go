package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry-backend/utils"
)

// LoggerMiddleware writes one structured access-log line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if utils.InfoLogger == nil {
			return
		}
		utils.InfoLogger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}
