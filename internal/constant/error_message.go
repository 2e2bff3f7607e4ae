package constant

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	CN string `json:"cn"` // 中文错误信息
	EN string `json:"en"` // 英文错误信息
}

// ErrorMessages 错误信息映射
var ErrorMessages = map[int]ErrorInfo{
	// 系统错误
	CodeSuccess:            {"操作成功", "Success"},
	CodeSystemError:        {"系统错误", "System error"},
	CodeDatabaseError:      {"数据库错误", "Database error"},
	CodeRedisError:         {"缓存服务错误", "Cache error"},
	CodeServiceUnavailable: {"服务暂不可用", "Service unavailable"},
	CodeRateLimit:          {"请求过于频繁", "Too many requests"},
	CodeInvalidParams:      {"参数格式错误", "Invalid parameters"},
	CodeMissingParams:      {"缺少必要参数", "Missing parameters"},
	CodeUnauthorized:       {"未授权访问", "Unauthorized"},
	CodeInsecureTransport:  {"仅支持 HTTPS 请求", "HTTPS required"},
	CodeBuyerAuthFailed:    {"买家身份验证失败", "Buyer authentication failed"},

	// 业务错误
	CodeCartError:               {"购物车存在错误", "Cart has errors"},
	CodeNoPayableOrders:         {"没有可在线支付的订单", "No orders payable online"},
	CodeOrderUpdate:             {"订单状态更新失败", "Order update failed"},
	CodeMultiPayeeViolation:     {"同一次购买存在多个收款方", "Several payees in one purchase"},
	CodePayMethodMisconfigured:  {"支付方式配置错误", "Payment method misconfigured"},
	CodeConsolidationFailed:     {"账单合并失败", "Invoice consolidation failed"},
	CodeUnknownPendingPayment:   {"未找到待支付记录", "Unknown pending payment"},
	CodeDuplicatePendingPayment: {"已存在待支付记录", "Payment already pending"},
	CodeBadCorrelationKey:       {"支付关联码无效", "Invalid payment reference"},

	// 网关错误
	CodeGatewayError:      {"支付网关错误", "Payment gateway error"},
	CodeGatewayTimeout:    {"支付网关超时", "Payment gateway timeout"},
	CodeGatewayRejected:   {"支付网关拒绝交易", "Payment gateway rejected"},
	CodeGatewayAuthFailed: {"支付网关认证失败", "Payment gateway authentication failed"},
}
