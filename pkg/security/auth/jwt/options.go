// Package jwt provides JWT configuration options.
//
// Options can be populated from config files, environment variables and
// command-line flags:
//
//	jwt:
//	  key: "your-secret-key-must-be-at-least-64-chars-long-for-security-purposes!!"
//	  signing-method: "HS256"
//	  expired: "2h"
//	  max-refresh: "24h"
//	  issuer: "sentinel-kb"
//	  audience: ["api"]
package jwt

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultSigningMethod is the default JWT signing algorithm.
	DefaultSigningMethod = "HS256"

	// DefaultExpired is the default token expiration time.
	DefaultExpired = 2 * time.Hour

	// DefaultMaxRefresh is the default maximum refresh duration.
	DefaultMaxRefresh = 24 * time.Hour

	// DefaultIssuer is the default token issuer.
	DefaultIssuer = "sentinel-kb"

	// MinKeyLength 是 HMAC 签名密钥的最小长度,64 字符即 512 位
	MinKeyLength = 64

	// RecommendedKeyLength 低于该长度时启动会打印警告
	RecommendedKeyLength = 128

	// MaxKeyLength 超长密钥影响签名性能,直接拒绝
	MaxKeyLength = 512
)

// SupportedSigningMethods contains all supported JWT signing algorithms.
var SupportedSigningMethods = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
	"RS256": true,
	"RS384": true,
	"RS512": true,
	"ES256": true,
	"ES384": true,
	"ES512": true,
}

// Options contains JWT configuration.
type Options struct {
	// DisableAuth 关闭 JWT 认证,受保护接口不再校验令牌
	DisableAuth bool `json:"disable-auth" mapstructure:"disable-auth"`

	// Key 签名密钥。HMAC 算法用随机字符串,RSA/ECDSA 用 PEM 私钥
	Key string `json:"key" mapstructure:"key"`

	// SigningMethod 签名算法,默认 HS256
	SigningMethod string `json:"signing-method" mapstructure:"signing-method"`

	// Expired 令牌有效期,默认 2h
	Expired time.Duration `json:"expired" mapstructure:"expired"`

	// MaxRefresh 自签发时刻起允许刷新的最长时间,默认 24h
	MaxRefresh time.Duration `json:"max-refresh" mapstructure:"max-refresh"`

	// Issuer 即 iss 声明,默认 sentinel-kb
	Issuer string `json:"issuer" mapstructure:"issuer"`

	// Audience 即 aud 声明,可以有多个
	Audience []string `json:"audience" mapstructure:"audience"`

	// PublicKey RSA/ECDSA 的 PEM 公钥,对称算法留空
	PublicKey string `json:"public-key" mapstructure:"public-key"`

	// KeyID 即 kid 头,用于密钥轮换
	KeyID string `json:"key-id" mapstructure:"key-id"`

	// IdentityKey 指定从自定义声明中解析 subject 的键,留空或 "sub" 时用标准 sub 声明
	IdentityKey string `json:"identity-key" mapstructure:"identity-key"`
}

// NewOptions creates a new Options with default values. Authentication is
// enabled unless explicitly disabled.
func NewOptions() *Options {
	return &Options{
		SigningMethod: DefaultSigningMethod,
		Expired:       DefaultExpired,
		MaxRefresh:    DefaultMaxRefresh,
		Issuer:        DefaultIssuer,
		Audience:      []string{},
	}
}

// Validate checks the options for consistency. With DisableAuth set nothing
// is validated.
func (o *Options) Validate() error {
	if o.DisableAuth {
		return nil
	}

	if !SupportedSigningMethods[o.SigningMethod] {
		return fmt.Errorf("unsupported signing method: %s", o.SigningMethod)
	}

	if err := o.validateKey(); err != nil {
		return err
	}

	if o.Expired <= 0 {
		return fmt.Errorf("expired must be positive, got: %v", o.Expired)
	}
	if o.MaxRefresh <= 0 {
		return fmt.Errorf("max-refresh must be positive, got: %v", o.MaxRefresh)
	}
	if o.MaxRefresh < o.Expired {
		return fmt.Errorf("max-refresh (%v) must be >= expired (%v)", o.MaxRefresh, o.Expired)
	}

	return nil
}

func (o *Options) validateKey() error {
	if o.Key == "" {
		return fmt.Errorf("jwt key is required")
	}

	if !o.isHMAC() {
		return nil
	}

	if len(o.Key) < MinKeyLength {
		return fmt.Errorf("jwt key must be at least %d characters for HMAC algorithms, got: %d",
			MinKeyLength, len(o.Key))
	}
	if len(o.Key) > MaxKeyLength {
		return fmt.Errorf("jwt key must be at most %d characters, got: %d",
			MaxKeyLength, len(o.Key))
	}
	if len(o.Key) < RecommendedKeyLength {
		fmt.Fprintf(os.Stderr, "WARNING: JWT key length (%d) is below recommended length (%d). "+
			"Consider using a stronger key for enhanced security.\n",
			len(o.Key), RecommendedKeyLength)
	}

	return nil
}

func (o *Options) isHMAC() bool {
	switch o.SigningMethod {
	case "HS256", "HS384", "HS512":
		return true
	}
	return false
}

// Complete fills in default values for unset fields.
func (o *Options) Complete() error {
	if o.SigningMethod == "" {
		o.SigningMethod = DefaultSigningMethod
	}
	if o.Expired == 0 {
		o.Expired = DefaultExpired
	}
	if o.MaxRefresh == 0 {
		o.MaxRefresh = DefaultMaxRefresh
	}
	if o.Issuer == "" {
		o.Issuer = DefaultIssuer
	}
	return nil
}

// AddFlags adds flags for JWT options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.DisableAuth, "jwt.disable-auth", o.DisableAuth,
		"Disable JWT authentication")
	fs.StringVar(&o.Key, "jwt.key", o.Key,
		"JWT signing key (min 64 chars for HMAC algorithms, 128 chars recommended)")
	fs.StringVar(&o.SigningMethod, "jwt.signing-method", o.SigningMethod,
		"JWT signing algorithm (HS256, HS384, HS512, RS256, RS384, RS512, ES256, ES384, ES512)")
	fs.DurationVar(&o.Expired, "jwt.expired", o.Expired,
		"JWT token expiration duration")
	fs.DurationVar(&o.MaxRefresh, "jwt.max-refresh", o.MaxRefresh,
		"Maximum duration a token can be refreshed")
	fs.StringVar(&o.Issuer, "jwt.issuer", o.Issuer,
		"JWT token issuer (iss claim)")
	fs.StringSliceVar(&o.Audience, "jwt.audience", o.Audience,
		"JWT token audience (aud claim)")
	fs.StringVar(&o.PublicKey, "jwt.public-key", o.PublicKey,
		"JWT public key for RSA/ECDSA algorithms")
	fs.StringVar(&o.KeyID, "jwt.key-id", o.KeyID,
		"JWT key identifier (kid header)")
}
