// Package server provides a unified multi-protocol server framework
// supporting HTTP and gRPC with pluggable adapters.
package server

import "context"

// Lifecycle 描述可启动、可优雅停止的组件。
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Server is an alias for Lifecycle, representing a runnable server.
type Server = Lifecycle

// Runnable 在 Lifecycle 之上附加名字,便于日志和回滚时定位。
type Runnable interface {
	Lifecycle
	Name() string
}
