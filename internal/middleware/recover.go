package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/utils"
)

func Recover(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if l != nil {
					l.WithFields(logrus.Fields{
						"trace_id": TraceID(c),
						"path":     c.Request.URL.Path,
					}).Errorf("panic: %v\n%s", r, debug.Stack())
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, utils.ErrorWithTrace(constant.CodeSystemError, TraceID(c)))
			}
		}()
		c.Next()
	}
}
