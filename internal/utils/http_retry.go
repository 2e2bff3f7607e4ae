package utils

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DoWithRetry 执行带重试逻辑的函数
func DoWithRetry(ctx context.Context, maxRetries int, interval time.Duration, fn func() error) error {
	return DoWithRetryIf(ctx, maxRetries, interval, nil, fn)
}

// DoWithRetryIf 仅在 retryable(err) 为真时重试；retryable 为 nil 时所有错误都重试
func DoWithRetryIf(ctx context.Context, maxRetries int, interval time.Duration, retryable func(error) bool, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}

		log.Printf("[RETRY] 第 %d/%d 次失败: %v", attempt, maxRetries, err)

		// 最后一次失败则直接返回
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("上下文已取消或超时: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return err
}
