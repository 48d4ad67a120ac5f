package middleware

import (
	"errors"
	"strings"

	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareVersion, func() MiddlewareConfig {
		return NewVersionOptions()
	})
}

var _ MiddlewareConfig = (*VersionOptions)(nil)

// VersionOptions contains version endpoint configuration.
type VersionOptions struct {
	// Enabled enables the version endpoint.
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Path specifies the version endpoint path.
	Path string `json:"path" mapstructure:"path"`
	// HideDetails 隐藏 commit hash、构建时间等敏感构建信息。
	HideDetails bool `json:"hide-details" mapstructure:"hide-details"`
}

// NewVersionOptions creates default version options.
func NewVersionOptions() *VersionOptions {
	return &VersionOptions{
		Enabled:     true,
		Path:        "/version",
		HideDetails: false,
	}
}

// Validate validates version options.
func (o *VersionOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Enabled && o.Path != "" && !strings.HasPrefix(o.Path, "/") {
		errs = append(errs, errors.New("middleware.version.path must start with '/'"))
	}
	return errs
}

// AddFlags adds flags for version options to the specified FlagSet.
func (o *VersionOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.version."

	fs.BoolVar(&o.Enabled, prefix+"enabled", o.Enabled, "Enable version endpoint.")
	fs.StringVar(&o.Path, prefix+"path", o.Path, "Version endpoint path.")
	fs.BoolVar(&o.HideDetails, prefix+"hide-details", o.HideDetails, "Hide sensitive build details in version response.")
}

// Complete completes version options with defaults.
func (o *VersionOptions) Complete() error {
	if o.Path == "" {
		o.Path = "/version"
	}
	return nil
}
