package gateway

import (
	"context"

	"wht-store-pay/internal/dto"
)

// CreateRequest is one payment creation at the gateway.
type CreateRequest struct {
	Invoice   *dto.Invoice
	ReturnURL string
	CancelURL string
	// RequestID makes retried creations idempotent on the gateway side.
	RequestID string
}

type CreateResult struct {
	PaymentID   string
	ApprovalURL string
}

type ExecuteResult struct {
	PaymentID string
	State     string
}

// PaymentGateway is the external payment provider as the engine sees it.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, creds dto.GatewayCredentials, req CreateRequest) (*CreateResult, error)
	ExecutePayment(ctx context.Context, creds dto.GatewayCredentials, paymentID, payerID string) (*ExecuteResult, error)
}
