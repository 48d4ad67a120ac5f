package requestutil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP 依次尝试 X-Forwarded-For、X-Real-IP 和 RemoteAddr。
// X-Forwarded-For 取最左侧,即最初的客户端地址。
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
