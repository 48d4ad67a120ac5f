package response

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// Writer writes pooled responses to a gin context. It acquires a Response
// per write and releases it after serialization, so handlers never manage
// the pool themselves.
type Writer struct {
	ctx       *gin.Context
	requestID string
	timestamp bool
}

// NewWriter creates a Writer bound to the given gin context.
func NewWriter(ctx *gin.Context) *Writer {
	return &Writer{ctx: ctx}
}

// WithRequestID attaches a request ID to every response this writer emits.
func (w *Writer) WithRequestID(requestID string) *Writer {
	w.requestID = requestID
	return w
}

// WithTimestamp stamps every response this writer emits with the current
// time in Unix milliseconds.
func (w *Writer) WithTimestamp() *Writer {
	w.timestamp = true
	return w
}

// OK writes a successful response with the given data.
func (w *Writer) OK(data interface{}) {
	w.write(Success(data))
}

// OKWithMessage writes a successful response with a custom message.
func (w *Writer) OKWithMessage(message string, data interface{}) {
	w.write(SuccessWithMessage(message, data))
}

// Fail writes an error response from an Errno.
func (w *Writer) Fail(e *errors.Errno) {
	w.write(Err(e))
}

// FailWithLang writes an error response with a language-specific message.
func (w *Writer) FailWithLang(e *errors.Errno, lang string) {
	w.write(ErrWithLang(e, lang))
}

// PageOK writes a paginated successful response.
func (w *Writer) PageOK(list interface{}, total int64, page, pageSize int) {
	w.write(Page(list, total, page, pageSize))
}

func (w *Writer) write(resp *Response) {
	defer Release(resp)

	if w.requestID != "" {
		resp.WithRequestID(w.requestID)
	}
	if w.timestamp {
		resp.WithTimestamp(time.Now().UnixMilli())
	}

	w.ctx.JSON(resp.HTTPStatus(), resp)
}

// OK writes a success response with data to the gin context.
func OK(ctx *gin.Context, data interface{}) {
	NewWriter(ctx).OK(data)
}

// Fail writes an error response derived from the Errno and aborts the
// remaining handler chain. Middleware uses this to short-circuit a request.
func Fail(ctx *gin.Context, e *errors.Errno) {
	NewWriter(ctx).Fail(e)
	ctx.Abort()
}
