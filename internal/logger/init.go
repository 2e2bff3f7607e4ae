package logger

import "github.com/sirupsen/logrus"

// 业务日志 / 安全日志 / 请求审计日志
var (
	Ppl   *logrus.Logger
	Sec   *logrus.Logger
	Audit *logrus.Logger
)

func InitLogger() {
	Ppl = NewLogger("ppl")
	Sec = NewLogger("sec")
	Audit = NewLogger("audit")
}
