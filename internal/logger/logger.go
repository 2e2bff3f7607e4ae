package logger

import (
	"fmt"
	"os"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// Dir is the root of the rotated log files.
var Dir = "./logs"

func NewLogger(logType string) *logrus.Logger {
	log := logrus.New()
	logPath := Dir + "/" + logType
	_ = os.MkdirAll(logPath, 0755)

	writer, err := rotatelogs.New(
		logPath+"/"+logType+".log.%Y-%m-%d",
		rotatelogs.WithLinkName(logPath+"/"+logType+".log"),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		// 文件不可写时退回到标准输出
		log.SetOutput(os.Stdout)
	} else {
		log.SetOutput(writer)
	}
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return f.Function, fmt.Sprintf("%s:%d", f.File, f.Line)
		},
	})
	log.SetLevel(logrus.InfoLevel)

	return log
}
