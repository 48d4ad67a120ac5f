package middleware

import (
	"strings"
	"testing"
	"time"

	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

func TestOptionsValidate_DefaultOptions(t *testing.T) {
	opts := NewOptions()
	if errs := opts.Validate(); len(errs) > 0 {
		t.Errorf("NewOptions() should create valid options, got errors: %v", errs)
	}
}

func TestOptionsValidate_Timeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		enable  bool
		wantErr bool
	}{
		{
			name:    "valid timeout",
			timeout: 30 * time.Second,
			enable:  true,
			wantErr: false,
		},
		{
			name:    "zero timeout is completed to default",
			timeout: 0,
			enable:  true,
			wantErr: false,
		},
		{
			name:    "negative timeout",
			timeout: -1 * time.Second,
			enable:  true,
			wantErr: true,
		},
		{
			name:    "timeout not configured - invalid value never set",
			timeout: -1 * time.Second,
			enable:  false,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			if tt.enable {
				cfg := mwopts.NewTimeoutOptions()
				cfg.Timeout = tt.timeout
				opts.SetConfig(MiddlewareTimeout, cfg)
			}

			errs := opts.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}

			if len(errs) > 0 && !strings.Contains(errs[0].Error(), "timeout") {
				t.Errorf("Expected error to mention 'timeout', got: %v", errs[0])
			}
		})
	}
}

func TestOptionsValidate_CORS(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*mwopts.CORSOptions)
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid CORS config",
			setup: func(c *mwopts.CORSOptions) {
				c.AllowOrigins = []string{"https://example.com"}
				c.AllowMethods = []string{"GET", "POST"}
			},
			wantErr: false,
		},
		{
			name: "no allowed origins",
			setup: func(c *mwopts.CORSOptions) {
				c.AllowOrigins = []string{}
				c.AllowMethods = []string{"GET"}
			},
			wantErr: true,
			errMsg:  "origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			cfg := mwopts.NewCORSOptions()
			tt.setup(cfg)
			opts.SetConfig(MiddlewareCORS, cfg)

			errs := opts.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}

			if len(errs) > 0 && tt.errMsg != "" && !strings.Contains(errs[0].Error(), tt.errMsg) {
				t.Errorf("Expected error to contain '%s', got: %v", tt.errMsg, errs[0])
			}
		})
	}
}

func TestOptionsValidate_MiddlewareOrder(t *testing.T) {
	tests := []struct {
		name    string
		order   []string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "empty order uses defaults",
			order:   nil,
			wantErr: false,
		},
		{
			name:    "valid order",
			order:   []string{MiddlewareRecovery, MiddlewareRequestID, MiddlewareLogger},
			wantErr: false,
		},
		{
			name:    "unknown middleware",
			order:   []string{MiddlewareRecovery, "no-such-middleware"},
			wantErr: true,
			errMsg:  "unknown middleware",
		},
		{
			name:    "duplicate middleware",
			order:   []string{MiddlewareRecovery, MiddlewareRecovery},
			wantErr: true,
			errMsg:  "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			opts.Middleware = tt.order

			errs := opts.ValidateMiddleware()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("ValidateMiddleware() errors = %v, wantErr %v", errs, tt.wantErr)
			}

			if len(errs) > 0 && tt.errMsg != "" && !strings.Contains(errs[0].Error(), tt.errMsg) {
				t.Errorf("Expected error to contain '%s', got: %v", tt.errMsg, errs[0])
			}
		})
	}
}

func TestOptionsIsEnabled(t *testing.T) {
	opts := NewOptions()

	// Enabled by default
	for _, name := range []string{
		MiddlewareRecovery,
		MiddlewareRequestID,
		MiddlewareLogger,
		MiddlewareHealth,
		MiddlewareMetrics,
	} {
		if !opts.IsEnabled(name) {
			t.Errorf("Expected %s to be enabled by default", name)
		}
	}

	// Disabled by default
	for _, name := range []string{
		MiddlewareCORS,
		MiddlewareTimeout,
		MiddlewareAuth,
		MiddlewareAuthz,
	} {
		if opts.IsEnabled(name) {
			t.Errorf("Expected %s to be disabled by default", name)
		}
	}

	// Enable via SetConfig, disable via DeleteConfig
	opts.SetConfig(MiddlewareCORS, mwopts.NewCORSOptions())
	if !opts.IsEnabled(MiddlewareCORS) {
		t.Error("Expected cors to be enabled after SetConfig")
	}

	opts.DeleteConfig(MiddlewareCORS)
	if opts.IsEnabled(MiddlewareCORS) {
		t.Error("Expected cors to be disabled after DeleteConfig")
	}
}

func TestOptionsGetConfigTyped(t *testing.T) {
	opts := NewOptions()
	opts.SetConfig(MiddlewareTimeout, mwopts.NewTimeoutOptions())

	cfg, ok := mwopts.GetConfigTyped[*mwopts.TimeoutOptions](opts, MiddlewareTimeout)
	if !ok {
		t.Fatal("Expected typed timeout config")
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}

	// Wrong type assertion fails cleanly
	if _, ok := mwopts.GetConfigTyped[*mwopts.CORSOptions](opts, MiddlewareTimeout); ok {
		t.Error("Expected typed lookup with wrong type to fail")
	}

	// Missing config fails cleanly
	if _, ok := mwopts.GetConfigTyped[*mwopts.TimeoutOptions](opts, MiddlewareCORS); ok {
		t.Error("Expected typed lookup of missing config to fail")
	}
}

func TestOptionsGetMiddlewareOrder(t *testing.T) {
	opts := NewOptions()

	order := opts.GetMiddlewareOrder()
	if len(order) == 0 {
		t.Fatal("Expected default middleware order")
	}
	if order[0] != MiddlewareRecovery {
		t.Errorf("Expected recovery first in default order, got %s", order[0])
	}

	custom := []string{MiddlewareRequestID, MiddlewareLogger}
	opts.Middleware = custom
	order = opts.GetMiddlewareOrder()
	if len(order) != 2 || order[0] != MiddlewareRequestID {
		t.Errorf("Expected custom order %v, got %v", custom, order)
	}
}

func TestOptionsComplete(t *testing.T) {
	opts := NewOptions()
	cfg := mwopts.NewTimeoutOptions()
	cfg.Timeout = 0
	opts.SetConfig(MiddlewareTimeout, cfg)

	if err := opts.Complete(); err != nil {
		t.Errorf("Complete() should not return error, got: %v", err)
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Complete() should default zero timeout, got %v", cfg.Timeout)
	}
}

func TestOptionsConfigureHelpers(t *testing.T) {
	opts := NewOptions()

	for _, opt := range []mwopts.Option{
		mwopts.WithCORS("https://example.com"),
		mwopts.WithTimeout(5*time.Second, "/health"),
		mwopts.WithSecurityHeaders(),
	} {
		opt(opts)
	}

	if !opts.IsEnabled(MiddlewareCORS) {
		t.Error("WithCORS should enable cors")
	}
	if !opts.IsEnabled(MiddlewareSecurityHeaders) {
		t.Error("WithSecurityHeaders should enable security-headers")
	}

	cfg, ok := mwopts.GetConfigTyped[*mwopts.TimeoutOptions](opts, MiddlewareTimeout)
	if !ok {
		t.Fatal("WithTimeout should enable timeout")
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if len(cfg.SkipPaths) != 1 || cfg.SkipPaths[0] != "/health" {
		t.Errorf("SkipPaths = %v, want [/health]", cfg.SkipPaths)
	}

	mwopts.WithoutCORS()(opts)
	if opts.IsEnabled(MiddlewareCORS) {
		t.Error("WithoutCORS should disable cors")
	}
}

// Benchmark validation performance
func BenchmarkOptionsValidate(b *testing.B) {
	opts := NewOptions()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = opts.Validate()
	}
}
