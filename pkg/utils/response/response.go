// Package response 提供统一的 API 响应结构,
// 保证所有 HTTP 端点返回一致的外层格式。
package response

import (
	"net/http"

	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// Response is the unified API response envelope.
type Response struct {
	// Code 为业务错误码,0 表示成功
	Code int `json:"code"`

	// HTTPCode 冗余携带 HTTP 状态码,方便客户端统一处理
	HTTPCode int `json:"http_code,omitempty"`

	Message string `json:"message"`

	// Data 为响应负载,错误响应时为 nil
	Data interface{} `json:"data,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	// Timestamp 为响应时间,Unix 毫秒
	Timestamp int64 `json:"timestamp,omitempty"`
}

// PageData represents paginated data.
type PageData struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// Success creates a successful response with data.
// The response is drawn from the pool; call Release when done with it.
func Success(data interface{}) *Response {
	r := Acquire()
	r.Code = 0
	r.HTTPCode = http.StatusOK
	r.Message = "success"
	r.Data = data
	return r
}

// SuccessWithMessage creates a successful response with a custom message.
func SuccessWithMessage(message string, data interface{}) *Response {
	r := Success(data)
	r.Message = message
	return r
}

func failure(code, httpCode int, message string) *Response {
	r := Acquire()
	r.Code = code
	r.HTTPCode = httpCode
	r.Message = message
	return r
}

// Err creates an error response from an Errno type.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return failure(e.Code, e.HTTPStatus(), e.MessageEN)
}

// ErrWithLang creates an error response with a language-specific message.
func ErrWithLang(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	return failure(e.Code, e.HTTPStatus(), e.Message(lang))
}

// ErrorWithCode creates an error response with code and message.
// HTTP 状态码根据错误码注册表推导。
func ErrorWithCode(code int, message string) *Response {
	r := failure(code, 0, message)
	r.HTTPCode = r.HTTPStatus()
	return r
}

// ErrorWithData creates an error response with additional data.
func ErrorWithData(code int, message string, data interface{}) *Response {
	r := ErrorWithCode(code, message)
	r.Data = data
	return r
}

// Page creates a paginated response.
func Page(list interface{}, total int64, page, pageSize int) *Response {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return Success(&PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// WithRequestID adds the request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// WithTimestamp adds the timestamp to the response.
func (r *Response) WithTimestamp(timestamp int64) *Response {
	r.Timestamp = timestamp
	return r
}

// IsSuccess reports whether the response indicates success.
func (r *Response) IsSuccess() bool { return r.Code == 0 }

// categoryStatus 是错误类别到 HTTP 状态码的兜底映射,
// 仅在错误码未注册时使用。
var categoryStatus = map[int]int{
	errors.CategoryRequest:    http.StatusBadRequest,
	errors.CategoryAuth:       http.StatusUnauthorized,
	errors.CategoryPermission: http.StatusForbidden,
	errors.CategoryResource:   http.StatusNotFound,
	errors.CategoryConflict:   http.StatusConflict,
	errors.CategoryRateLimit:  http.StatusTooManyRequests,
	errors.CategoryTimeout:    http.StatusGatewayTimeout,
	errors.CategoryNetwork:    http.StatusServiceUnavailable,
}

// HTTPStatus returns the HTTP status code for this response.
// 优先用已设置的 HTTPCode,其次查错误码注册表,最后按类别兜底。
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	if status, ok := categoryStatus[errors.GetCategory(r.Code)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
