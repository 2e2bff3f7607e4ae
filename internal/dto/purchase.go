package dto

import (
	ordermodel "wht-store-pay/internal/model/order"
)

// Buyer is the authenticated shopper.
type Buyer struct {
	ID   uint64
	Name string
}

// Cart is the buyer's cart as seen by the payment engine.
type Cart struct {
	Buyer       Buyer
	HasError    bool
	Description string
}

// Purchase is the result of booking a buyer's new orders.
type Purchase struct {
	ID           uint64
	BuyerID      uint64
	Orders       []ordermodel.CustomerOrder
	SellerOrders []ordermodel.SellerOrder
}

// PayeeKind tells who receives the money of an order.
type PayeeKind int8

const (
	PayeeOwner PayeeKind = iota
	PayeeSeller
)

func (k PayeeKind) String() string {
	if k == PayeeSeller {
		return "seller"
	}
	return "owner"
}

// OrderRef is the single internal view of an owner or seller order.
type OrderRef struct {
	ID         uint64
	Kind       PayeeKind
	SellerID   uint64
	BuyerID    uint64
	PurchaseID uint64
	Currency   string
	PayMethod  ordermodel.PayMethod
	Status     ordermodel.OrderStatus
}
