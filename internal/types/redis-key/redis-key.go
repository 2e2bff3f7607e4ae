package rediskey

// 待支付登记 redis key 前缀
const PendingPrefix = "ppl:pending:"

// PendingEntry 单条待支付记录 (hash: pid, at)
func PendingEntry(prefix, purchaseKey string) string {
	return prefix + purchaseKey
}

// PendingPaymentIndex 网关支付 ID -> 关联码
func PendingPaymentIndex(prefix string) string {
	return prefix + "idx"
}

// PendingTimeIndex 按创建时间排序的关联码，供过期清扫使用
func PendingTimeIndex(prefix string) string {
	return prefix + "by_time"
}
