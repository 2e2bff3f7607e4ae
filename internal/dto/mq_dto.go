package dto

import "time"

// 支付事件路由键
const (
	TopicPaymentCreated  = "payment.created"
	TopicPaymentExecuted = "payment.executed"
	TopicPaymentCanceled = "payment.canceled"
	TopicPaymentExpired  = "payment.expired"
)

// PaymentEventMQ is published after the database transaction of a phase commits.
type PaymentEventMQ struct {
	CorrelationKey string    `json:"correlation_key"`
	PaymentID      string    `json:"payment_id"`
	BuyerID        uint64    `json:"buyer_id"`
	PurchaseID     uint64    `json:"purchase_id"`
	SellerID       uint64    `json:"seller_id,omitempty"`
	Status         string    `json:"status"`
	Amount         string    `json:"amount,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
