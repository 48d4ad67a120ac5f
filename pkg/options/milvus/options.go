// Package milvusopts provides options for Milvus client configuration.
package milvusopts

import (
	"fmt"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Milvus client configuration.
type Options struct {
	// Address 是 Milvus 服务地址,host:port 格式。
	Address string `json:"address" mapstructure:"address"`

	// Database 指定使用的数据库。
	Database string `json:"database" mapstructure:"database"`

	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	// Timeout 连接和单次操作的超时。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// PoolSize 连接池大小。
	PoolSize int `json:"pool-size" mapstructure:"pool-size"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Address:  "localhost:19530",
		Database: "default",
		Timeout:  30 * time.Second,
		PoolSize: 10,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "milvus."

	fs.StringVar(&o.Address, prefix+"address", o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, prefix+"database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, prefix+"username", o.Username, "Milvus username for authentication.")
	fs.StringVar(&o.Password, prefix+"password", o.Password, "Milvus password for authentication.")
	fs.DurationVar(&o.Timeout, prefix+"timeout", o.Timeout, "Connection and operation timeout.")
	fs.IntVar(&o.PoolSize, prefix+"pool-size", o.PoolSize, "Connection pool size.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus address is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus timeout must be positive"))
	}
	return errs
}
