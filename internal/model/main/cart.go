package mainmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Buyer struct {
	ID     uint64 `gorm:"column:id;primaryKey"`
	Name   string `gorm:"column:name"`
	Email  string `gorm:"column:email"`
	Status int8   `gorm:"column:status"`
}

func (Buyer) TableName() string { return "buyer" }

type Cart struct {
	BuyerID     uint64          `gorm:"column:buyer_id;primaryKey"`
	HasError    bool            `gorm:"column:err"`
	Description string          `gorm:"column:descr"`
	Currency    string          `gorm:"column:currency;size:8"`
	Total       decimal.Decimal `gorm:"column:total;type:decimal(20,4)"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (Cart) TableName() string { return "cart" }

type CartLine struct {
	ID       uint64          `gorm:"column:id;primaryKey"`
	BuyerID  uint64          `gorm:"column:buyer_id;index"`
	ItemName string          `gorm:"column:item_name"`
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(20,4)"`
	Total    decimal.Decimal `gorm:"column:total;type:decimal(20,4)"`
}

func (CartLine) TableName() string { return "cart_ln" }
