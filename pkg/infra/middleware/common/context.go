// Package common 存放中间件子包共享的类型和工具,避免互相引用成环。
package common

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// 跨中间件使用的请求头名。
const (
	HeaderXRequestID = "X-Request-ID"
	HeaderTraceID    = "X-Trace-ID"
)

// RequestIDKey is the context key type for request ID.
type RequestIDKey struct{}

// GetRequestID returns the request ID from the context, empty when absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey{}).(string)
	return id
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, requestID)
}

var requestIDCounter uint64

// GenerateRequestID 生成随机请求 ID。随机源不可用时退化为
// 时间戳加进程内计数,仍保证进程内唯一。
func GenerateRequestID() string {
	b := make([]byte, 16)
	if n, err := rand.Read(b); err != nil || n != 16 {
		return fmt.Sprintf("%x-%x", time.Now().Unix(), atomic.AddUint64(&requestIDCounter, 1))
	}
	return hex.EncodeToString(b)
}
