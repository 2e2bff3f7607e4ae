package constant

// 支付网关错误码 (3xxx)
const (
	// CodeGatewayError 网关通用错误：网络异常、5xx、响应无法解析
	CodeGatewayError = 3000

	// CodeGatewayTimeout 网关请求超时
	CodeGatewayTimeout = 3001

	// CodeGatewayRejected 网关明确拒绝（4xx、业务错误）
	CodeGatewayRejected = 3002

	// CodeGatewayAuthFailed 网关凭证无效，无法获取 access token
	CodeGatewayAuthFailed = 3004
)
