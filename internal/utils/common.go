package utils

import "github.com/shopspring/decimal"

// FormatAmount 按固定小数位输出金额（网关要求的字符串格式）
func FormatAmount(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
