package service

import (
	"net/http"

	"gorm.io/gorm"

	"wht-store-pay/internal/dto"
	ordermodel "wht-store-pay/internal/model/order"
)

// BuyerAuthenticator resolves the shopper behind a request; nil means anonymous.
type BuyerAuthenticator interface {
	Authenticate(r *http.Request) (*dto.Buyer, error)
}

// CartService reads and empties carts inside the caller's transaction.
type CartService interface {
	// GetCart returns nil when the buyer has no cart.
	GetCart(tx *gorm.DB, buyer dto.Buyer) (*dto.Cart, error)
	EmptyCart(tx *gorm.DB, buyerID uint64) error
}

// OrderAcceptor books the buyer's NEW orders into one purchase.
type OrderAcceptor interface {
	AcceptOrders(tx *gorm.DB, buyer dto.Buyer) (*dto.Purchase, error)
}

// OrderCanceller moves every order of a purchase from one status to another.
type OrderCanceller interface {
	CancelOrders(tx *gorm.DB, buyerID, purchaseID uint64, from, to ordermodel.OrderStatus) error
}

// 可疑请求严重级别
const (
	SeverityLow    = 1
	SeverityMedium = 50
	SeverityHigh   = 100
)

// AbuseReporter records requests that look like tampering or replay.
type AbuseReporter interface {
	ReportAbuse(r *http.Request, severity int, message string)
}
