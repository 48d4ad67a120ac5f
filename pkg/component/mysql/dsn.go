package mysql

import (
	"fmt"
	"net/url"
)

// BuildDSN 按 go-sql-driver 的格式拼接 DSN:
// username:password@tcp(host:port)/database?params
//
// 密码做 URL 转义,含 @、/、: 等字符的密码不会破坏 DSN 解析。
func BuildDSN(opts *Options) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		opts.Username,
		url.QueryEscape(opts.Password),
		opts.Host,
		opts.Port,
		opts.Database,
	)
}
