package dto

import "time"

// AuditContextPayload is the per-request trace context set by the trace middleware.
type AuditContextPayload struct {
	TraceID   string
	StartTime time.Time
	PaymentID string
	Status    string
	ErrorMsg  string
	IP        string
	UserAgent string
	LatencyMs int64
}
