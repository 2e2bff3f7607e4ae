package ordermodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
type OrderStatus int8

const (
	StatusNew OrderStatus = iota
	StatusBooked
	StatusPayed
	StatusClosed
	StatusCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusBooked:
		return "BOOKED"
	case StatusPayed:
		return "PAYED"
	case StatusClosed:
		return "CLOSED"
	case StatusCanceled:
		return "CANCELED"
	}
	return "UNKNOWN"
}

// PayMethod 订单声明的支付方式
type PayMethod int8

const (
	PayAny       PayMethod = 0
	PayCash      PayMethod = 1
	PayBankCheck PayMethod = 2
	PayCard      PayMethod = 3
	PayPaypal    PayMethod = 9
	PayPaypalAny PayMethod = 10
)

// OnlineMethods are the tags this engine pays through the gateway.
var OnlineMethods = []PayMethod{PayPaypal, PayPaypalAny}

// IsOnline reports whether the order is payable through the gateway.
func (m PayMethod) IsOnline() bool {
	return m == PayPaypal || m == PayPaypalAny
}

// OrderBase holds the columns shared by owner and seller orders.
type OrderBase struct {
	ID         uint64          `gorm:"column:id;primaryKey"`
	BuyerID    uint64          `gorm:"column:buyer_id;index"`
	PurchaseID uint64          `gorm:"column:purchase_id;index"`
	Status     OrderStatus     `gorm:"column:status"`
	PayMethod  PayMethod       `gorm:"column:pay_method"`
	Currency   string          `gorm:"column:currency;size:8"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:decimal(20,4)"`
	TaxTotal   decimal.Decimal `gorm:"column:tax_total;type:decimal(20,4)"`
	Total      decimal.Decimal `gorm:"column:total;type:decimal(20,4)"`
	Version    int64           `gorm:"column:version"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

// CustomerOrder 店主订单
type CustomerOrder struct {
	OrderBase
}

func (CustomerOrder) TableName() string { return TableOwnerOrder }

// SellerOrder 平台卖家订单
type SellerOrder struct {
	OrderBase
	SellerID uint64 `gorm:"column:seller_id;index"`
}

func (SellerOrder) TableName() string { return TableSellerOrder }
