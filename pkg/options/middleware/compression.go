package middleware

import (
	"errors"

	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareCompression, func() MiddlewareConfig {
		return NewCompressionOptions()
	})
}

var _ MiddlewareConfig = (*CompressionOptions)(nil)

// CompressionOptions 定义响应压缩中间件的配置。
// 分片预览这类 JSON 响应体积可观,压缩能明显省带宽。
type CompressionOptions struct {
	// Level 压缩级别,1 最快,9 压缩率最高,-1 等同于默认的 6。
	Level int `json:"level" mapstructure:"level"`

	// MinSize 最小压缩大小,单位字节,小于此值的响应不压缩。
	MinSize int `json:"min-size" mapstructure:"min-size"`

	// Types 需要压缩的 Content-Type 列表,
	// 只压缩文本类内容,避免对图片、视频等已压缩内容做无用功。
	Types []string `json:"types" mapstructure:"types"`

	// SkipPaths 跳过压缩的精确路径列表。
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`

	// SkipPathPrefixes 跳过压缩的路径前缀列表,如文件下载、流式接口。
	SkipPathPrefixes []string `json:"skip-path-prefixes" mapstructure:"skip-path-prefixes"`
}

// NewCompressionOptions 创建默认的 Compression 中间件配置。
func NewCompressionOptions() *CompressionOptions {
	return &CompressionOptions{
		Level:   6,
		MinSize: 1024,
		Types: []string{
			"application/json",
			"application/javascript",
			"application/xml",
			"text/html",
			"text/css",
			"text/plain",
			"text/xml",
			"text/javascript",
		},
		SkipPaths:        []string{},
		SkipPathPrefixes: []string{},
	}
}

// AddFlags 添加 Compression 配置的命令行标志。
func (o *CompressionOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.compression."

	fs.IntVar(&o.Level, prefix+"level", o.Level, "Compression level (1-9, 6 is recommended).")
	fs.IntVar(&o.MinSize, prefix+"min-size", o.MinSize, "Minimum size in bytes to compress.")
	fs.StringSliceVar(&o.Types, prefix+"types", o.Types, "Content-Type list to compress.")
	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths, "Skip paths for compression middleware.")
	fs.StringSliceVar(&o.SkipPathPrefixes, prefix+"skip-path-prefixes", o.SkipPathPrefixes, "Skip path prefixes for compression middleware.")
}

// Validate 验证 Compression 配置的有效性。
func (o *CompressionOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Level < -1 || o.Level > 9 {
		errs = append(errs, errors.New("compression: Level must be between -1 and 9"))
	}
	if o.MinSize < 0 {
		errs = append(errs, errors.New("compression: MinSize must be non-negative"))
	}
	if len(o.Types) == 0 {
		errs = append(errs, errors.New("compression: Types must not be empty, at least one Content-Type should be specified"))
	}
	return errs
}

// Complete 完成 Compression 配置的默认值填充。
func (o *CompressionOptions) Complete() error {
	if o.Level == -1 {
		o.Level = 6
	}
	return nil
}
