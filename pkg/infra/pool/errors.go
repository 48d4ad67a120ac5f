// Package pool provides resource pooling.
package pool

import "errors"

// 池生命周期和提交相关的哨兵错误。
var (
	ErrPoolClosed            = errors.New("池已关闭")
	ErrPoolNotFound          = errors.New("池不存在")
	ErrPoolAlreadyExists     = errors.New("池已存在")
	ErrInvalidPoolConfig     = errors.New("无效的池配置")
	ErrManagerNotInitialized = errors.New("池管理器未初始化")
	ErrPoolOverload          = errors.New("池已满")
)
