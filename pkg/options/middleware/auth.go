package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/kart-io/sentinel-kb/pkg/security/auth"
	"github.com/kart-io/sentinel-kb/pkg/security/authz"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareAuth, func() MiddlewareConfig {
		return NewAuthOptions()
	})
	Register(MiddlewareAuthz, func() MiddlewareConfig {
		return NewAuthzOptions()
	})
}

// 确保选项实现 MiddlewareConfig 接口。
var (
	_ MiddlewareConfig = (*AuthOptions)(nil)
	_ MiddlewareConfig = (*AuthzOptions)(nil)
)

// AuthOptions 定义认证中间件的配置选项。
// 运行时依赖（Authenticator、回调）通过 `json:"-"` 字段注入，不参与序列化。
type AuthOptions struct {
	// Authenticator is the authenticator to use (runtime dependency).
	Authenticator auth.Authenticator `json:"-" mapstructure:"-"`

	// TokenLookup defines how to extract the token.
	// Format: "header:<name>" or "query:<name>" or "cookie:<name>"
	// Default: "header:Authorization"
	TokenLookup string `json:"token-lookup" mapstructure:"token-lookup"`

	// AuthScheme is the authorization scheme (e.g., "Bearer").
	// Default: "Bearer"
	AuthScheme string `json:"auth-scheme" mapstructure:"auth-scheme"`

	// SkipPaths is a list of paths to skip authentication.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`

	// SkipPathPrefixes is a list of path prefixes to skip authentication.
	SkipPathPrefixes []string `json:"skip-path-prefixes" mapstructure:"skip-path-prefixes"`

	// ErrorHandler is called when authentication fails.
	ErrorHandler func(ctx *gin.Context, err error) `json:"-" mapstructure:"-"`

	// SuccessHandler is called after successful authentication.
	SuccessHandler func(ctx *gin.Context, claims *auth.Claims) `json:"-" mapstructure:"-"`
}

// NewAuthOptions 创建默认的认证选项。
func NewAuthOptions() *AuthOptions {
	return &AuthOptions{
		TokenLookup: "header:Authorization",
		AuthScheme:  "Bearer",
	}
}

// AddFlags 为认证选项添加标志到指定的 FlagSet。
func (o *AuthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.auth."

	fs.StringVar(&o.TokenLookup, prefix+"token-lookup", o.TokenLookup,
		"Token lookup source: header:<name>, query:<name> or cookie:<name>.")
	fs.StringVar(&o.AuthScheme, prefix+"auth-scheme", o.AuthScheme,
		"Authorization scheme (e.g. Bearer).")
	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths,
		"Paths to skip authentication.")
	fs.StringSliceVar(&o.SkipPathPrefixes, prefix+"skip-path-prefixes", o.SkipPathPrefixes,
		"Path prefixes to skip authentication.")
}

// Validate 验证认证选项。
func (o *AuthOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TokenLookup == "" {
		errs = append(errs, &ConfigError{
			Field:   "middleware.auth.token-lookup",
			Message: "token lookup is required",
		})
	}
	return errs
}

// Complete 完成认证选项的默认值设置。
func (o *AuthOptions) Complete() error {
	if o.TokenLookup == "" {
		o.TokenLookup = "header:Authorization"
	}
	if o.AuthScheme == "" {
		o.AuthScheme = "Bearer"
	}
	return nil
}

// AuthzOptions 定义授权中间件的配置选项。
type AuthzOptions struct {
	// Authorizer is the authorizer to use (runtime dependency).
	Authorizer authz.Authorizer `json:"-" mapstructure:"-"`

	// ResourceExtractor extracts the resource from the request.
	// Default: extracts from request path.
	ResourceExtractor func(ctx *gin.Context) string `json:"-" mapstructure:"-"`

	// ActionExtractor extracts the action from the request.
	// Default: maps HTTP method to action (GET->read, POST->create, etc.).
	ActionExtractor func(ctx *gin.Context) string `json:"-" mapstructure:"-"`

	// SubjectExtractor extracts the subject from the request.
	// Default: extracts from auth claims in context.
	SubjectExtractor func(ctx *gin.Context) string `json:"-" mapstructure:"-"`

	// SkipPaths is a list of paths to skip authorization.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`

	// SkipPathPrefixes is a list of path prefixes to skip authorization.
	SkipPathPrefixes []string `json:"skip-path-prefixes" mapstructure:"skip-path-prefixes"`

	// ErrorHandler is called when authorization fails.
	ErrorHandler func(ctx *gin.Context, err error) `json:"-" mapstructure:"-"`
}

// NewAuthzOptions 创建默认的授权选项。
func NewAuthzOptions() *AuthzOptions {
	return &AuthzOptions{}
}

// AddFlags 为授权选项添加标志到指定的 FlagSet。
func (o *AuthzOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.authz."

	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths,
		"Paths to skip authorization.")
	fs.StringSliceVar(&o.SkipPathPrefixes, prefix+"skip-path-prefixes", o.SkipPathPrefixes,
		"Path prefixes to skip authorization.")
}

// Validate 验证授权选项。
func (o *AuthzOptions) Validate() []error {
	return nil
}

// Complete 完成授权选项的默认值设置。
func (o *AuthzOptions) Complete() error {
	return nil
}
