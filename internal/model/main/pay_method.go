package mainmodel

// PayMethodName is the NAME value of the gateway credential rows.
const PayMethodName = "PAYPAL"

// PayMethod 店主的网关凭证
type PayMethod struct {
	ID           uint64 `gorm:"column:id;primaryKey"`
	Name         string `gorm:"column:name;size:32;index"`
	Mode         string `gorm:"column:mode;size:16"`
	ClientID     string `gorm:"column:client_id"`
	ClientSecret string `gorm:"column:client_secret"`
}

func (PayMethod) TableName() string { return "pay_md" }

// SellerPayMethod 卖家的网关凭证
type SellerPayMethod struct {
	ID           uint64 `gorm:"column:id;primaryKey"`
	SellerID     uint64 `gorm:"column:seller_id;index"`
	Name         string `gorm:"column:name;size:32;index"`
	Mode         string `gorm:"column:mode;size:16"`
	ClientID     string `gorm:"column:client_id"`
	ClientSecret string `gorm:"column:client_secret"`
}

func (SellerPayMethod) TableName() string { return "se_pay_md" }
