// Package authzopts provides options for the authorization engine.
package authzopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Authorization engines.
const (
	// EngineRBAC is the in-memory role authorizer with static roles.
	EngineRBAC = "rbac"

	// EngineCasbin is the Casbin authorizer with MySQL policy storage.
	EngineCasbin = "casbin"
)

// Options contains authorization engine configuration.
// Only consulted when token authentication is enabled.
type Options struct {
	// Engine selects the authorizer: rbac or casbin.
	Engine string `json:"engine" mapstructure:"engine"`

	// Model is the Casbin model file path. Casbin engine only.
	Model string `json:"model" mapstructure:"model"`

	// CacheTTL is how long authorization decisions stay cached.
	CacheTTL time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`

	// CacheSize caps the number of cached decisions.
	CacheSize int `json:"cache-size" mapstructure:"cache-size"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Engine:    EngineRBAC,
		Model:     "configs/casbin-model.conf",
		CacheTTL:  5 * time.Minute,
		CacheSize: 10000,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Engine, "authz.engine", o.Engine, "Authorization engine (rbac, casbin)")
	fs.StringVar(&o.Model, "authz.model", o.Model, "Casbin model file path (casbin engine only)")
	fs.DurationVar(&o.CacheTTL, "authz.cache-ttl", o.CacheTTL, "TTL for cached authorization decisions")
	fs.IntVar(&o.CacheSize, "authz.cache-size", o.CacheSize, "Maximum number of cached authorization decisions")
}

// Validate validates the options.
func (o *Options) Validate() error {
	switch o.Engine {
	case EngineRBAC, EngineCasbin:
	default:
		return fmt.Errorf("authz.engine must be rbac or casbin")
	}
	if o.Engine == EngineCasbin && o.Model == "" {
		return fmt.Errorf("authz.model is required for the casbin engine")
	}
	if o.CacheTTL <= 0 {
		return fmt.Errorf("authz.cache-ttl must be positive")
	}
	if o.CacheSize <= 0 {
		return fmt.Errorf("authz.cache-size must be positive")
	}
	return nil
}
