package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// common 注册一个通用服务域 (ServiceCommon) 的错误码。
func common(category, seq, httpStatus int, grpcCode codes.Code, en, zh string) *Errno {
	return Register(&Errno{
		Code:      MakeCode(ServiceCommon, category, seq),
		HTTP:      httpStatus,
		GRPCCode:  grpcCode,
		MessageEN: en,
		MessageZH: zh,
	})
}

// OK represents a successful operation.
var OK = Register(&Errno{
	Code:      0,
	HTTP:      http.StatusOK,
	GRPCCode:  codes.OK,
	MessageEN: "Success",
	MessageZH: "成功",
})

// 请求类错误 (Category: 01)
var (
	ErrBadRequest       = common(CategoryRequest, 0, http.StatusBadRequest, codes.InvalidArgument, "Bad request", "请求错误")
	ErrInvalidParam     = common(CategoryRequest, 1, http.StatusBadRequest, codes.InvalidArgument, "Invalid parameter", "参数无效")
	ErrMissingParam     = common(CategoryRequest, 2, http.StatusBadRequest, codes.InvalidArgument, "Missing required parameter", "缺少必需参数")
	ErrValidationFailed = common(CategoryRequest, 3, http.StatusBadRequest, codes.InvalidArgument, "Validation failed", "验证失败")
	ErrRequestTooLarge  = common(CategoryRequest, 4, http.StatusRequestEntityTooLarge, codes.ResourceExhausted, "Request entity too large", "请求体过大")
)

// 认证类错误 (Category: 02)
var (
	ErrUnauthorized   = common(CategoryAuth, 0, http.StatusUnauthorized, codes.Unauthenticated, "Unauthorized", "未授权")
	ErrInvalidToken   = common(CategoryAuth, 1, http.StatusUnauthorized, codes.Unauthenticated, "Invalid token", "令牌无效")
	ErrTokenExpired   = common(CategoryAuth, 2, http.StatusUnauthorized, codes.Unauthenticated, "Token expired", "令牌已过期")
	ErrTokenRevoked   = common(CategoryAuth, 3, http.StatusUnauthorized, codes.Unauthenticated, "Token revoked", "令牌已吊销")
	ErrSessionExpired = common(CategoryAuth, 4, http.StatusUnauthorized, codes.Unauthenticated, "Session expired", "会话已过期")
)

// 权限类错误 (Category: 03)
var (
	ErrForbidden    = common(CategoryPermission, 0, http.StatusForbidden, codes.PermissionDenied, "Forbidden", "禁止访问")
	ErrNoPermission = common(CategoryPermission, 1, http.StatusForbidden, codes.PermissionDenied, "Permission denied", "没有操作权限")
)

// 资源类错误 (Category: 04)
var (
	ErrNotFound       = common(CategoryResource, 0, http.StatusNotFound, codes.NotFound, "Resource not found", "资源不存在")
	ErrRecordNotFound = common(CategoryResource, 1, http.StatusNotFound, codes.NotFound, "Record not found", "记录不存在")
	ErrRouteNotFound  = common(CategoryResource, 2, http.StatusNotFound, codes.NotFound, "Route not found", "路由不存在")
)

// 冲突类错误 (Category: 05)
var (
	ErrConflict      = common(CategoryConflict, 0, http.StatusConflict, codes.AlreadyExists, "Resource conflict", "资源冲突")
	ErrAlreadyExists = common(CategoryConflict, 1, http.StatusConflict, codes.AlreadyExists, "Resource already exists", "资源已存在")
)

// 限流类错误 (Category: 06)
var ErrRateLimitExceeded = common(CategoryRateLimit, 0, http.StatusTooManyRequests, codes.ResourceExhausted, "Rate limit exceeded", "请求频率超限")

// 内部错误 (Category: 07)
var (
	ErrInternal       = common(CategoryInternal, 0, http.StatusInternalServerError, codes.Internal, "Internal server error", "服务器内部错误")
	ErrUnknown        = common(CategoryInternal, 1, http.StatusInternalServerError, codes.Unknown, "Unknown error", "未知错误")
	ErrPanic          = common(CategoryInternal, 2, http.StatusInternalServerError, codes.Internal, "Service panic", "服务崩溃")
	ErrNotImplemented = common(CategoryInternal, 3, http.StatusNotImplemented, codes.Unimplemented, "Not implemented", "功能未实现")
)

// 数据库错误 (Category: 08)
var (
	ErrDatabase      = common(CategoryDatabase, 0, http.StatusInternalServerError, codes.Internal, "Database error", "数据库错误")
	ErrDBConnection  = common(CategoryDatabase, 1, http.StatusInternalServerError, codes.Unavailable, "Database connection failed", "数据库连接失败")
	ErrDBTransaction = common(CategoryDatabase, 2, http.StatusInternalServerError, codes.Internal, "Database transaction failed", "数据库事务失败")
)

// 缓存错误 (Category: 09)
var (
	ErrCache           = common(CategoryCache, 0, http.StatusInternalServerError, codes.Internal, "Cache error", "缓存错误")
	ErrCacheConnection = common(CategoryCache, 1, http.StatusInternalServerError, codes.Unavailable, "Cache connection failed", "缓存连接失败")
)

// 网络错误 (Category: 10)
var (
	ErrNetwork            = common(CategoryNetwork, 0, http.StatusBadGateway, codes.Unavailable, "Network error", "网络错误")
	ErrServiceUnavailable = common(CategoryNetwork, 1, http.StatusServiceUnavailable, codes.Unavailable, "Service unavailable", "服务不可用")
)

// 超时错误 (Category: 11)
var (
	ErrTimeout = common(CategoryTimeout, 0, http.StatusGatewayTimeout, codes.DeadlineExceeded, "Operation timeout", "操作超时")

	// 499 即 nginx 的 Client Closed Request
	ErrContextCanceled = common(CategoryTimeout, 1, 499, codes.Canceled, "Context canceled", "上下文已取消")

	ErrRequestTimeout = common(CategoryTimeout, 2, http.StatusRequestTimeout, codes.DeadlineExceeded, "Request timeout", "请求超时")
)

// 配置错误 (Category: 12)
var (
	ErrConfig        = common(CategoryConfig, 0, http.StatusInternalServerError, codes.Internal, "Configuration error", "配置错误")
	ErrConfigInvalid = common(CategoryConfig, 1, http.StatusInternalServerError, codes.Internal, "Invalid configuration", "配置无效")
)
