package constant

// 业务级错误码 (2xxx)

// 购物车与订单
const (
	CodeCartError       = 2100 // cart flagged in error, nothing may be paid
	CodeNoPayableOrders = 2101 // purchase has no order payable through the gateway
	CodeOrderUpdate     = 2102 // bulk order status transition failed
)

// 收款方与支付方式
const (
	CodeMultiPayeeViolation    = 2200 // more than one online payee in one purchase
	CodePayMethodMisconfigured = 2201 // zero or several credential rows for the payee
)

// 账单合并
const (
	CodeConsolidationFailed = 2300 // invoice could not be built (invoice-basis tax, mixed currency, ...)
)

// 待支付登记
const (
	CodeUnknownPendingPayment   = 2400 // no outstanding payment matches the request
	CodeDuplicatePendingPayment = 2401 // a payment is already outstanding for the purchase key
	CodeBadCorrelationKey       = 2402 // correlation key could not be parsed
)
