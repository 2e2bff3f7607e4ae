package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		entry := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"latency":    latency.String(),
			"user-agent": c.Request.UserAgent(),
			"trace_id":   TraceID(c),
		}

		// query 里有支付关联码和网关 id，只记路径
		if len(c.Errors) > 0 {
			l.WithFields(entry).Error(c.Errors.String())
		} else {
			l.WithFields(entry).Info("request completed")
		}
	}
}
