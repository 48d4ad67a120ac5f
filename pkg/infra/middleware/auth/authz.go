package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/kart-io/sentinel-kb/pkg/security/auth"
	"github.com/kart-io/sentinel-kb/pkg/security/authz"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

type authzOptions struct {
	authorizer        authz.Authorizer
	resourceExtractor func(ctx *gin.Context) string
	actionExtractor   func(ctx *gin.Context) string
	subjectExtractor  func(ctx *gin.Context) string
	skipPaths         []string
	skipPathPrefixes  []string
	errorHandler      func(ctx *gin.Context, err error)
}

func (o *authzOptions) fail(c *gin.Context, err error) {
	if o.errorHandler != nil {
		o.errorHandler(c, err)
		return
	}
	errno := errors.FromError(err)
	c.JSON(errno.HTTPStatus(), response.Err(errno))
}

// AuthzWithOptions 返回授权中间件。opts 是纯配置（可 JSON 序列化,适配配置中心）,
// authorizer 等运行时依赖单独注入。各提取器传 nil 时使用默认实现:
// 资源取路径首段,动作按 HTTP 方法映射,主体取认证 claims。
//
//	opts := mwopts.NewAuthzOptions()
//	middleware := AuthzWithOptions(*opts, myAuthorizer, nil, nil, nil, nil)
func AuthzWithOptions(
	opts mwopts.AuthzOptions,
	authorizer authz.Authorizer,
	resourceExtractor func(ctx *gin.Context) string,
	actionExtractor func(ctx *gin.Context) string,
	subjectExtractor func(ctx *gin.Context) string,
	errorHandler func(ctx *gin.Context, err error),
) gin.HandlerFunc {
	if resourceExtractor == nil {
		resourceExtractor = defaultResourceExtractor
	}
	if actionExtractor == nil {
		actionExtractor = defaultActionExtractor
	}
	if subjectExtractor == nil {
		subjectExtractor = defaultSubjectExtractor
	}

	o := &authzOptions{
		authorizer:        authorizer,
		resourceExtractor: resourceExtractor,
		actionExtractor:   actionExtractor,
		subjectExtractor:  subjectExtractor,
		skipPaths:         opts.SkipPaths,
		skipPathPrefixes:  opts.SkipPathPrefixes,
		errorHandler:      errorHandler,
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if pathutil.ShouldSkip(path, o.skipPaths, o.skipPathPrefixes) {
			c.Next()
			return
		}

		if o.authorizer == nil {
			o.fail(c, errors.ErrInternal.WithMessage("authorizer not configured"))
			return
		}

		subject := o.subjectExtractor(c)
		if subject == "" {
			o.fail(c, errors.ErrUnauthorized.WithMessage("no subject found"))
			return
		}

		resource := o.resourceExtractor(c)
		action := o.actionExtractor(c)

		allowed, err := o.authorizer.Authorize(c.Request.Context(), subject, resource, action)
		if err != nil {
			logAuthzFailure(c, subject, resource, action, err)
			o.fail(c, err)
			return
		}
		if !allowed {
			authzErr := errors.ErrNoPermission.WithMessagef(
				"access denied: subject=%s, resource=%s, action=%s",
				subject, resource, action)
			logAuthzFailure(c, subject, resource, action, authzErr)
			o.fail(c, authzErr)
			return
		}

		logger.Infow("authorization successful",
			"subject", subject,
			"resource", resource,
			"action", action,
			"path", path,
		)

		c.Next()
	}
}

// defaultResourceExtractor 取去掉 API 前缀后的路径首段作为资源名,
// 例如 /api/v1/documents/123 -> documents。
func defaultResourceExtractor(c *gin.Context) string {
	path := strings.TrimPrefix(c.Request.URL.Path, "/")
	path = strings.TrimPrefix(path, "api/")
	path = strings.TrimPrefix(path, "v1/")
	path = strings.TrimPrefix(path, "v2/")

	if parts := strings.SplitN(path, "/", 2); len(parts) > 0 {
		return parts[0]
	}
	return path
}

// defaultActionExtractor 按 HTTP 方法映射动作。
func defaultActionExtractor(c *gin.Context) string {
	switch c.Request.Method {
	case "GET":
		return "read"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(c.Request.Method)
	}
}

func defaultSubjectExtractor(c *gin.Context) string {
	return auth.SubjectFromContext(c.Request.Context())
}

// logAuthzFailure 记录越权访问的审计日志。
func logAuthzFailure(c *gin.Context, subject, resource, action string, err error) {
	req := c.Request
	if req == nil {
		return
	}

	logger.Warnw("authorization denied",
		"subject", subject,
		"resource", resource,
		"action", action,
		"error", err.Error(),
		"remote_addr", req.RemoteAddr,
		"path", req.URL.Path,
		"method", req.Method,
		"user_agent", req.UserAgent(),
	)
}
