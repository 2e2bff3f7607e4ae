package ordermodel

import "github.com/shopspring/decimal"

const (
	TableOwnerOrder        = "cu_or"
	TableOwnerGoodLine     = "cu_or_gd_ln"
	TableOwnerServiceLine  = "cu_or_sr_ln"
	TableOwnerTaxLine      = "cu_or_tx_ln"
	TableSellerOrder       = "cu_or_se"
	TableSellerGoodLine    = "cu_or_se_gd_ln"
	TableSellerServiceLine = "cu_or_se_sr_ln"
	TableSellerTaxLine     = "cu_or_se_tx_ln"
)

// OrderLine is a good or service line; the same shape is stored in the
// owner and seller line tables and read with db.Table(name).
type OrderLine struct {
	ID       uint64          `gorm:"column:id;primaryKey"`
	OrderID  uint64          `gorm:"column:order_id;index"`
	Name     string          `gorm:"column:name"`
	Price    decimal.Decimal `gorm:"column:price;type:decimal(20,4)"`
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(20,4)"`
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(20,4)"`
	Total    decimal.Decimal `gorm:"column:total;type:decimal(20,4)"`
	TaxTotal decimal.Decimal `gorm:"column:tax_total;type:decimal(20,4)"`
}

// OrderTaxLine is an invoice-basis tax row of an order.
type OrderTaxLine struct {
	ID      uint64          `gorm:"column:id;primaryKey"`
	OrderID uint64          `gorm:"column:order_id;index"`
	TaxName string          `gorm:"column:tax_name"`
	Total   decimal.Decimal `gorm:"column:total;type:decimal(20,4)"`
}
