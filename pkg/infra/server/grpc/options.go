// Package grpc provides gRPC server configuration options.
//
// 配置类型定义在 pkg/options/server/grpc,这里只做兼容性的再导出。
package grpc

import (
	options "github.com/kart-io/sentinel-kb/pkg/options/server/grpc"
)

// Options contains gRPC server configuration.
type Options = options.Options

// Option is a function that configures Options.
type Option = options.Option

// NewOptions creates a new Options with default values.
var NewOptions = options.NewOptions

var (
	WithAddr           = options.WithAddr
	WithTimeout        = options.WithTimeout
	WithMaxRecvMsgSize = options.WithMaxRecvMsgSize
	WithMaxSendMsgSize = options.WithMaxSendMsgSize
	WithReflection     = options.WithReflection
)
