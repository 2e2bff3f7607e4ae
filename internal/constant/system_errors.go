package constant

// 系统级错误码 (1xxx)
const (
	CodeSuccess            = 0    // 操作成功
	CodeSystemError        = 1000 // 系统内部错误
	CodeDatabaseError      = 1001 // 数据库操作失败，包括连接失败、查询错误、事务异常等
	CodeRedisError         = 1002 // Redis 读写失败
	CodeServiceUnavailable = 1004 // 服务暂时不可用
	CodeRateLimit          = 1006 // 请求频率超过限制
)

// 参数错误码
const (
	CodeInvalidParams = 1100 // 参数格式错误
	CodeMissingParams = 1101 // 缺少必要参数
)

// 认证授权错误码
const (
	CodeUnauthorized      = 1200 // 未授权访问
	CodeInsecureTransport = 1207 // request did not arrive over TLS
	CodeBuyerAuthFailed   = 1208 // buyer could not be authenticated, treated as suspected abuse
)
