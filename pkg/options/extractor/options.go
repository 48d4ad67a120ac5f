// Package extractoropts provides options for the content extraction service client.
package extractoropts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options contains extraction service client configuration.
type Options struct {
	// BaseURL is the extraction service API base URL.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Timeout for single-page extraction requests.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// SiteTimeout for full-site crawls, which take much longer.
	SiteTimeout time.Duration `json:"site-timeout" mapstructure:"site-timeout"`

	// MaxPages bounds how many pages a site crawl may return.
	MaxPages int `json:"max-pages" mapstructure:"max-pages"`

	// MaxRetries is the maximum number of retries for failed requests.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BaseURL:     "http://localhost:8090",
		Timeout:     30 * time.Second,
		SiteTimeout: 10 * time.Minute,
		MaxPages:    200,
		MaxRetries:  3,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefix string) {
	fs.StringVar(&o.BaseURL, prefix+"base-url", o.BaseURL, "Extraction service API base URL")
	fs.DurationVar(&o.Timeout, prefix+"timeout", o.Timeout, "Page extraction request timeout")
	fs.DurationVar(&o.SiteTimeout, prefix+"site-timeout", o.SiteTimeout, "Site crawl request timeout")
	fs.IntVar(&o.MaxPages, prefix+"max-pages", o.MaxPages, "Maximum pages per site crawl")
	fs.IntVar(&o.MaxRetries, prefix+"max-retries", o.MaxRetries, "Max retries for failed requests")
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.BaseURL == "" {
		return fmt.Errorf("extractor base-url is required")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("extractor timeout must be positive")
	}
	if o.MaxPages <= 0 {
		return fmt.Errorf("extractor max-pages must be positive")
	}
	return nil
}
