package security

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// Security header constants.
const (
	HeaderXFrameOptions           = "X-Frame-Options"
	HeaderXContentTypeOptions     = "X-Content-Type-Options"
	HeaderXXSSProtection          = "X-XSS-Protection"
	HeaderContentSecurityPolicy   = "Content-Security-Policy"
	HeaderReferrerPolicy          = "Referrer-Policy"
	HeaderStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders returns a middleware that adds security headers with default options.
func SecurityHeaders() gin.HandlerFunc {
	return SecurityHeadersWithOptions(*mwopts.NewSecurityHeadersOptions())
}

// SecurityHeadersWithOptions 按配置添加安全响应头,
// HSTS 只在 HTTPS 连接上发送。
func SecurityHeadersWithOptions(opts mwopts.SecurityHeadersOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.EnableHSTS && isHTTPSConnection(c) {
			hsts := fmt.Sprintf("max-age=%d", opts.HSTSMaxAge)
			if opts.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			if opts.HSTSPreload {
				hsts += "; preload"
			}
			c.Header(HeaderStrictTransportSecurity, hsts)
		}

		if opts.EnableFrameOptions {
			c.Header(HeaderXFrameOptions, opts.FrameOptionsValue)
		}
		if opts.EnableContentTypeOptions {
			c.Header(HeaderXContentTypeOptions, "nosniff")
		}
		if opts.EnableXSSProtection {
			c.Header(HeaderXXSSProtection, opts.XSSProtectionValue)
		}
		if opts.ContentSecurityPolicy != "" {
			c.Header(HeaderContentSecurityPolicy, opts.ContentSecurityPolicy)
		}
		if opts.ReferrerPolicy != "" {
			c.Header(HeaderReferrerPolicy, opts.ReferrerPolicy)
		}

		c.Next()
	}
}

// isHTTPSConnection 直连看 req.TLS,走反向代理时看 X-Forwarded-Proto。
func isHTTPSConnection(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}
