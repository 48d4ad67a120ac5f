// Package ollamaopts provides options for Ollama client configuration.
package ollamaopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options contains Ollama client configuration.
type Options struct {
	// BaseURL 为 Ollama API 地址
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// EmbedModel 为向量化使用的模型名
	EmbedModel string `json:"embed-model" mapstructure:"embed-model"`

	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
// 向量化请求可能排队,默认超时放宽到 120s。
func NewOptions() *Options {
	return &Options{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefix string) {
	fs.StringVar(&o.BaseURL, prefix+"base-url", o.BaseURL, "Ollama API base URL")
	fs.StringVar(&o.EmbedModel, prefix+"embed-model", o.EmbedModel, "Model for embeddings")
	fs.DurationVar(&o.Timeout, prefix+"timeout", o.Timeout, "Request timeout")
	fs.IntVar(&o.MaxRetries, prefix+"max-retries", o.MaxRetries, "Max retries for failed requests")
}

// Validate validates the options.
func (o *Options) Validate() error {
	switch {
	case o.BaseURL == "":
		return fmt.Errorf("ollama base-url is required")
	case o.EmbedModel == "":
		return fmt.Errorf("ollama embed-model is required")
	case o.Timeout <= 0:
		return fmt.Errorf("ollama timeout must be positive")
	}
	return nil
}
