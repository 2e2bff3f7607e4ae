package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wht-store-pay/internal/dto"
	"wht-store-pay/internal/logger"
)

const auditCtxKey = "audit_ctx"

// TraceAuditMiddleware tags each request with a trace id and writes one
// audit record when it completes. Handlers fill the payload through Audit.
func TraceAuditMiddleware(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := uuid.New().String()
		ctx := &dto.AuditContextPayload{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
			StartTime: time.Now(),
		}
		c.Set(auditCtxKey, ctx)
		c.Writer.Header().Set("X-Trace-ID", traceID)

		c.Next()

		ctx.LatencyMs = time.Since(ctx.StartTime).Milliseconds()
		logger.WriteAuditLog(l, ctx)
	}
}

// Audit returns the request's audit payload, or a detached one when the
// trace middleware is not installed.
func Audit(c *gin.Context) *dto.AuditContextPayload {
	if v, ok := c.Get(auditCtxKey); ok {
		if p, ok := v.(*dto.AuditContextPayload); ok {
			return p
		}
	}
	return &dto.AuditContextPayload{}
}

func TraceID(c *gin.Context) string {
	return Audit(c).TraceID
}
