// Package options defines the generic options interface and common utilities.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join 用 "." 连接前缀并补上结尾的 ".",
// 用于拼 "mysql.host"、"prefix.mysql.host" 这类 flag 名。
func Join(prefixes ...string) string {
	if joined := strings.Join(prefixes, "."); joined != "" {
		return joined + "."
	}
	return ""
}

// IOptions defines methods to implement a generic options.
type IOptions interface {
	// Validate 校验必填项,需要时也可以在这里补全默认值
	Validate() []error

	// AddFlags adds flags related to given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
