package dto

import (
	"github.com/shopspring/decimal"
)

// GatewayCredentials are the client credentials of one payee.
type GatewayCredentials struct {
	Mode         string `validate:"required,oneof=sandbox live"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
}

// Payee is the resolved receiver of a purchase.
type Payee struct {
	Kind        PayeeKind
	SellerID    uint64
	Credentials GatewayCredentials
	// Orders are the online-payable orders funding this payee, owner orders first.
	Orders []OrderRef
}

// LineKind 明细类型
type LineKind int8

const (
	LineGood LineKind = iota
	LineService
)

// InvoiceLine is one good or service line as sent to the gateway.
type InvoiceLine struct {
	Kind     LineKind
	OrderID  uint64
	Name     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Subtotal decimal.Decimal
	Total    decimal.Decimal
	TaxTotal decimal.Decimal
}

// Invoice is the consolidated, transient view over a payee's orders.
type Invoice struct {
	BuyerID    uint64
	PurchaseID uint64
	Currency   string
	Payee      Payee
	Goods      []InvoiceLine
	Services   []InvoiceLine
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	Total      decimal.Decimal
	// InvoiceBasisTax is set when TaxTotal came from order tax rows
	// rather than from the lines.
	InvoiceBasisTax bool
}

// Lines returns goods followed by services.
func (inv *Invoice) Lines() []InvoiceLine {
	out := make([]InvoiceLine, 0, len(inv.Goods)+len(inv.Services))
	out = append(out, inv.Goods...)
	return append(out, inv.Services...)
}
