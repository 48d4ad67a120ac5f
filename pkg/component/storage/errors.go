package storage

import (
	"errors"
	"fmt"
)

// Sentinel storage errors. Wrap them with WithMessage, WithCause or
// WithContext to attach backend-specific detail; errors.Is matching is by
// Code, so wrapped copies still compare equal to the sentinel.
var (
	// ErrNotConnected 客户端未初始化或连接已关闭
	ErrNotConnected = &StorageError{
		Code:    "NOT_CONNECTED",
		Message: "storage client is not connected",
	}

	// ErrConnectionFailed 建连失败,网络、认证或后端不可用
	ErrConnectionFailed = &StorageError{
		Code:    "CONNECTION_FAILED",
		Message: "failed to connect to storage backend",
	}

	// ErrTimeout 操作超出 deadline
	ErrTimeout = &StorageError{
		Code:    "TIMEOUT",
		Message: "storage operation timed out",
	}

	// ErrInvalidConfig 配置校验失败,在建连前检出
	ErrInvalidConfig = &StorageError{
		Code:    "INVALID_CONFIG",
		Message: "invalid storage configuration",
	}

	// ErrClientNotFound 管理器中没有该名字的客户端
	ErrClientNotFound = &StorageError{
		Code:    "CLIENT_NOT_FOUND",
		Message: "storage client not found",
	}

	// ErrClientAlreadyExists 同名客户端已注册
	ErrClientAlreadyExists = &StorageError{
		Code:    "CLIENT_ALREADY_EXISTS",
		Message: "storage client already exists",
	}

	// ErrOperationFailed 通用操作失败,使用时应包上具体原因
	ErrOperationFailed = &StorageError{
		Code:    "OPERATION_FAILED",
		Message: "storage operation failed",
	}
)

// StorageError carries a machine-readable code plus a human-readable
// message, an optional cause and free-form context.
type StorageError struct {
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is matches two StorageErrors by Code.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	return ok && e.Code == t.Code
}

// WithMessage returns a copy with the message replaced.
//
//	storage.ErrConnectionFailed.WithMessage("redis-drafts: dial 127.0.0.1:6379 refused")
func (e *StorageError) WithMessage(msg string) *StorageError {
	clone := *e
	clone.Message = msg
	return &clone
}

// WithCause returns a copy wrapping a lower-level error.
func (e *StorageError) WithCause(cause error) *StorageError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithContext returns a copy with ctx merged over any existing context.
func (e *StorageError) WithContext(ctx map[string]interface{}) *StorageError {
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}

	clone := *e
	clone.Context = merged
	return &clone
}

// GetContext retrieves a context value by key.
func (e *StorageError) GetContext(key string) (interface{}, bool) {
	if e.Context == nil {
		return nil, false
	}
	val, ok := e.Context[key]
	return val, ok
}

// IsStorageError reports whether err has a StorageError in its chain.
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

// GetStorageError extracts a StorageError from an error chain.
func GetStorageError(err error) (*StorageError, bool) {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr, true
	}
	return nil, false
}
