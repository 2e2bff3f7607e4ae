package constant

import (
	"errors"
	"fmt"
)

// Error 错误接口
type Error interface {
	error
	Code() int
	Message() string
	WithData(data interface{}) Error
}

// CustomError carries a numeric code, its public message and an optional cause.
// The cause is only ever logged; it never reaches the buyer.
type CustomError struct {
	code    int
	message string
	detail  string
	data    interface{}
	cause   error
}

func (e *CustomError) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.code, e.message)
	if e.detail != "" {
		s += ", detail: " + e.detail
	}
	if e.cause != nil {
		s += ", cause: " + e.cause.Error()
	}
	return s
}

func (e *CustomError) Code() int {
	return e.code
}

func (e *CustomError) Message() string {
	return e.message
}

func (e *CustomError) Data() interface{} {
	return e.data
}

func (e *CustomError) WithData(data interface{}) Error {
	e.data = data
	return e
}

func (e *CustomError) Unwrap() error {
	return e.cause
}

// Is matches any coded error with the same code.
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if errors.As(target, &t) {
		return t.code == e.code
	}
	return false
}

// NewError 创建错误
func NewError(code int) Error {
	if info, exists := ErrorMessages[code]; exists {
		return &CustomError{code: code, message: info.EN}
	}
	return &CustomError{code: code, message: "Unknown error"}
}

// Errorf builds a coded error with an internal detail message.
func Errorf(code int, format string, args ...interface{}) error {
	e := NewError(code).(*CustomError)
	e.detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap builds a coded error around cause. A nil cause still yields the coded error.
func Wrap(code int, cause error, format string, args ...interface{}) error {
	e := NewError(code).(*CustomError)
	e.detail = fmt.Sprintf(format, args...)
	e.cause = cause
	return e
}

// CodeOf returns the code of the outermost coded error in err's chain,
// or CodeSystemError when there is none.
func CodeOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.code
	}
	return CodeSystemError
}

// IsCode reports whether err carries code anywhere in its chain.
func IsCode(err error, code int) bool {
	return errors.Is(err, &CustomError{code: code})
}

// GetErrorInfo 获取错误信息
func GetErrorInfo(code int) (ErrorInfo, bool) {
	info, exists := ErrorMessages[code]
	return info, exists
}
