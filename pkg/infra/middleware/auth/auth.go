// Package auth provides authentication middleware.
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/infra/middleware/internal/pathutil"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	"github.com/kart-io/sentinel-kb/pkg/security/auth"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

type options struct {
	authenticator    auth.Authenticator
	tokenLookup      string
	authScheme       string
	skipPaths        []string
	skipPathPrefixes []string
	errorHandler     func(ctx *gin.Context, err error)
	successHandler   func(ctx *gin.Context, claims *auth.Claims)
}

func (o *options) fail(c *gin.Context, err error) {
	if o.errorHandler != nil {
		o.errorHandler(c, err)
		return
	}
	errno := errors.FromError(err)
	c.JSON(errno.HTTPStatus(), response.Err(errno))
}

// AuthWithOptions 返回认证中间件。opts 是纯配置（可 JSON 序列化,适配配置中心）,
// authenticator 等运行时依赖单独注入。errorHandler 和 successHandler 传 nil
// 使用默认行为。
//
//	opts := mwopts.NewAuthOptions()
//	middleware := AuthWithOptions(*opts, myAuthenticator, nil, nil)
func AuthWithOptions(
	opts mwopts.AuthOptions,
	authenticator auth.Authenticator,
	errorHandler func(ctx *gin.Context, err error),
	successHandler func(ctx *gin.Context, claims *auth.Claims),
) gin.HandlerFunc {
	o := &options{
		authenticator:    authenticator,
		tokenLookup:      opts.TokenLookup,
		authScheme:       opts.AuthScheme,
		skipPaths:        opts.SkipPaths,
		skipPathPrefixes: opts.SkipPathPrefixes,
		errorHandler:     errorHandler,
		successHandler:   successHandler,
	}

	lookup := parseTokenLookup(o.tokenLookup)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if pathutil.ShouldSkip(path, o.skipPaths, o.skipPathPrefixes) {
			c.Next()
			return
		}

		if o.authenticator == nil {
			o.fail(c, errors.ErrInternal.WithMessage("authenticator not configured"))
			return
		}

		tokenString := extractToken(c, lookup, o.authScheme)
		if tokenString == "" {
			o.fail(c, errors.ErrUnauthorized.WithMessage("missing authentication token"))
			return
		}

		claims, err := o.authenticator.Verify(c.Request.Context(), tokenString)
		if err != nil {
			logAuthFailure(c, tokenString, err)
			o.fail(c, err)
			return
		}

		logger.Infow("authentication successful",
			"subject", claims.Subject,
			"path", path,
		)

		newCtx := auth.InjectAuth(c.Request.Context(), claims, tokenString)
		c.Request = c.Request.WithContext(newCtx)

		if o.successHandler != nil {
			o.successHandler(c, claims)
		}

		c.Next()
	}
}

// tokenLookup 描述 token 的来源: header、query 或 cookie。
type tokenLookup struct {
	source string
	name   string
}

func parseTokenLookup(lookup string) tokenLookup {
	parts := strings.SplitN(lookup, ":", 2)
	if len(parts) != 2 {
		return tokenLookup{source: "header", name: "Authorization"}
	}
	return tokenLookup{source: parts[0], name: parts[1]}
}

func extractToken(c *gin.Context, lookup tokenLookup, scheme string) string {
	var token string

	switch lookup.source {
	case "header":
		token = c.GetHeader(lookup.name)
		if scheme != "" && strings.HasPrefix(token, scheme+" ") {
			token = strings.TrimPrefix(token, scheme+" ")
		}
	case "query":
		token = c.Query(lookup.name)
	case "cookie":
		if cookie, err := c.Request.Cookie(lookup.name); err == nil {
			token = cookie.Value
		}
	}

	// 归一化 URL 传输中可能被转义的字符
	token = strings.ReplaceAll(token, " ", "")
	token = strings.ReplaceAll(token, "+", "-")
	token = strings.ReplaceAll(token, "/", "_")
	return strings.TrimRight(token, "=")
}

// logAuthFailure 记录认证失败的审计日志,只保留 token 前缀避免泄漏。
func logAuthFailure(c *gin.Context, token string, err error) {
	req := c.Request
	if req == nil {
		return
	}

	tokenPrefix := ""
	switch {
	case len(token) > 20:
		tokenPrefix = token[:20] + "..."
	case len(token) > 0:
		tokenPrefix = token[:len(token)/2] + "..."
	}

	logger.Warnw("authentication failed",
		"error", err.Error(),
		"remote_addr", req.RemoteAddr,
		"token_prefix", tokenPrefix,
		"path", req.URL.Path,
		"method", req.Method,
		"user_agent", req.UserAgent(),
	)
}
