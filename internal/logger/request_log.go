package logger

import (
	"github.com/sirupsen/logrus"

	"wht-store-pay/internal/dto"
)

// WriteAuditLog 写入一条支付请求审计记录
func WriteAuditLog(l *logrus.Logger, payload *dto.AuditContextPayload) {
	if l == nil || payload == nil {
		return
	}
	entry := l.WithFields(logrus.Fields{
		"trace_id":   payload.TraceID,
		"payment_id": payload.PaymentID,
		"status":     payload.Status,
		"ip":         payload.IP,
		"user_agent": payload.UserAgent,
		"latency_ms": payload.LatencyMs,
	})
	if payload.ErrorMsg != "" {
		entry.WithField("error", payload.ErrorMsg).Warn("payment request failed")
		return
	}
	entry.Info("payment request")
}
