package dto

import "net/http"

// 支付结果状态
const (
	PayStatusCreated  = "created"
	PayStatusExecuted = "executed"
	PayStatusCanceled = "canceled"
	PayStatusReturn   = "return"
)

// PaymentQuery binds the query parameters of the payment endpoint.
// PayerID/paymentId are the spellings the gateway appends on redirect.
type PaymentQuery struct {
	PayerID      string `form:"payerID"`
	GwPayerID    string `form:"PayerID"`
	PaymentID    string `form:"paymentID"`
	GwPaymentID  string `form:"paymentId"`
	Purchase     string `form:"pur" binding:"omitempty,max=96"`
	Cancel       string `form:"cnc"`
	ProcRedirect string `form:"prcRed" binding:"omitempty,max=256"`
}

// Payer returns the payer id whichever spelling carried it.
func (q PaymentQuery) Payer() string {
	if q.PayerID != "" {
		return q.PayerID
	}
	return q.GwPayerID
}

// Payment returns the gateway payment id whichever spelling carried it.
func (q PaymentQuery) Payment() string {
	if q.PaymentID != "" {
		return q.PaymentID
	}
	return q.GwPaymentID
}

// PaymentRequest is what the engine needs from one inbound request.
type PaymentRequest struct {
	// Secure is true when the request arrived over TLS (directly or via a trusted proxy).
	Secure bool
	// BaseURL is the absolute URL of the payment endpoint, without query.
	BaseURL      string
	PayerID      string
	PaymentID    string
	Correlation  string
	Cancel       bool
	ProcRedirect string
	// HTTP is the raw request, used by buyer authentication and abuse reporting.
	HTTP *http.Request
}

// PaymentResult is the small result bag written back to the caller.
type PaymentResult struct {
	PaymentID   string `json:"paymentId"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirectURL,omitempty"`
}
