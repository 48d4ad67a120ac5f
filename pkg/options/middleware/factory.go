package middleware

import "github.com/gin-gonic/gin"

// Factory 定义中间件处理函数工厂接口。
// 每个内置中间件在 init() 中注册一个工厂，服务器按配置顺序
// 通过工厂创建并挂载 gin 中间件。
type Factory interface {
	// Name 返回中间件名称（与配置注册名一致）。
	Name() string

	// NeedsRuntime 返回该中间件是否需要运行时依赖注入。
	// 需要运行时依赖的中间件（如 auth/authz）不能由服务器自动创建，
	// 必须由调用方手动挂载。
	NeedsRuntime() bool

	// Create 根据配置创建中间件处理函数。
	Create(cfg MiddlewareConfig) (gin.HandlerFunc, error)
}

// RouteRegistrar 定义路由注册器接口。
// 部分中间件注册的是独立端点而非拦截器（health、metrics、pprof、version）。
type RouteRegistrar interface {
	// RegisterRoutes 将端点注册到 gin 引擎。
	RegisterRoutes(engine *gin.Engine, cfg MiddlewareConfig) error
}
