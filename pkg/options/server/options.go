// Package server provides composite server configuration covering HTTP,
// gRPC, middleware, and lifecycle settings.
package server

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	grpcopts "github.com/kart-io/sentinel-kb/pkg/options/server/grpc"
	httpopts "github.com/kart-io/sentinel-kb/pkg/options/server/http"
)

// Mode controls which transport servers the manager creates.
type Mode string

const (
	// ModeHTTPOnly runs only the HTTP server.
	ModeHTTPOnly Mode = "http"
	// ModeGRPCOnly runs only the gRPC server.
	ModeGRPCOnly Mode = "grpc"
	// ModeBoth runs HTTP and gRPC servers together.
	ModeBoth Mode = "both"
)

// ParseMode converts a mode string into a Mode, defaulting to ModeBoth.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeHTTPOnly, ModeGRPCOnly, ModeBoth:
		return Mode(s)
	default:
		return ModeBoth
	}
}

// Options aggregates the transport server configuration.
type Options struct {
	// Mode selects which servers to run.
	Mode Mode `json:"mode" mapstructure:"mode"`

	// HTTP holds HTTP server options. Ignored when Mode is grpc-only.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// GRPC holds gRPC server options. Ignored when Mode is http-only.
	GRPC *grpcopts.Options `json:"grpc" mapstructure:"grpc"`

	// Middleware holds the HTTP middleware chain configuration.
	Middleware *mwopts.Options `json:"middleware" mapstructure:"middleware"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// Option is a function that configures Options.
type Option func(*Options)

// NewOptions creates Options with defaults for all sub-components.
func NewOptions() *Options {
	return &Options{
		Mode:            ModeHTTPOnly,
		HTTP:            httpopts.NewOptions(),
		GRPC:            grpcopts.NewOptions(),
		Middleware:      mwopts.NewOptions(),
		ShutdownTimeout: 30 * time.Second,
	}
}

// EnableHTTP reports whether the HTTP server should run.
func (o *Options) EnableHTTP() bool {
	return o.Mode == ModeHTTPOnly || o.Mode == ModeBoth
}

// EnableGRPC reports whether the gRPC server should run.
func (o *Options) EnableGRPC() bool {
	return o.Mode == ModeGRPCOnly || o.Mode == ModeBoth
}

// AddFlags adds flags for the composite server options to the FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar((*string)(&o.Mode), "server.mode", string(o.Mode), "Server mode: http, grpc, or both.")
	fs.DurationVar(&o.ShutdownTimeout, "server.shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
	if o.HTTP != nil {
		o.HTTP.AddFlags(fs, "server")
	}
	if o.GRPC != nil {
		o.GRPC.AddFlags(fs)
	}
	if o.Middleware != nil {
		o.Middleware.AddFlags(fs, "server")
	}
}

// Validate validates the composite options and every enabled sub-component.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	switch o.Mode {
	case ModeHTTPOnly, ModeGRPCOnly, ModeBoth:
	default:
		errs = append(errs, fmt.Errorf("server.mode must be one of http, grpc, both"))
	}

	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown-timeout must be positive"))
	}

	if o.EnableHTTP() {
		if o.HTTP == nil {
			errs = append(errs, fmt.Errorf("server.http options are required in mode %q", o.Mode))
		} else {
			errs = append(errs, o.HTTP.Validate()...)
		}
	}

	if o.EnableGRPC() {
		if o.GRPC == nil {
			errs = append(errs, fmt.Errorf("server.grpc options are required in mode %q", o.Mode))
		} else if err := o.GRPC.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if o.Middleware != nil {
		errs = append(errs, o.Middleware.Validate()...)
	}

	return errs
}

// Complete fills in any missing sub-options with defaults.
func (o *Options) Complete() error {
	if o.Mode == "" {
		o.Mode = ModeHTTPOnly
	}
	if o.HTTP == nil {
		o.HTTP = httpopts.NewOptions()
	}
	if o.GRPC == nil {
		o.GRPC = grpcopts.NewOptions()
	}
	if o.Middleware == nil {
		o.Middleware = mwopts.NewOptions()
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 30 * time.Second
	}
	if err := o.HTTP.Complete(); err != nil {
		return err
	}
	if err := o.GRPC.Complete(); err != nil {
		return err
	}
	return o.Middleware.Complete()
}

// WithMode sets the server mode.
func WithMode(mode Mode) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}

// WithHTTPOptions replaces the HTTP server options.
func WithHTTPOptions(opts *httpopts.Options) Option {
	return func(o *Options) {
		o.HTTP = opts
	}
}

// WithGRPCOptions replaces the gRPC server options.
func WithGRPCOptions(opts *grpcopts.Options) Option {
	return func(o *Options) {
		o.GRPC = opts
	}
}

// WithMiddleware replaces the middleware options.
func WithMiddleware(opts *mwopts.Options) Option {
	return func(o *Options) {
		o.Middleware = opts
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ShutdownTimeout = d
	}
}

// ApplyOptions applies the given options to the Options.
func (o *Options) ApplyOptions(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}
