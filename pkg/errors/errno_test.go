package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestMakeCodeRoundTrip(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		code     int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{0, 2, 0, 2000},
		{20, 4, 1, 2004001},
		{90, 7, 1, 9007001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.code, MakeCode(tt.service, tt.category, tt.sequence))

			service, category, sequence := ParseCode(tt.code)
			assert.Equal(t, tt.service, service)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.sequence, sequence)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	// 类别 1 为请求错误,7/12 为服务端错误。
	assert.True(t, IsClientError(1001))
	assert.False(t, IsClientError(7000))

	assert.True(t, IsServerError(7000))
	assert.True(t, IsServerError(12000))
	assert.False(t, IsServerError(1001))
}

func TestErrnoError(t *testing.T) {
	assert.Equal(t, "errno 1001: Invalid parameter", ErrInvalidParam.Error())
}

func TestErrnoWithCause(t *testing.T) {
	cause := fmt.Errorf("gorm: record not found")
	err := ErrInvalidParam.WithCause(cause)

	assert.Same(t, cause, err.Unwrap())
	assert.Equal(t, ErrInvalidParam.Code, err.Code)
}

func TestErrnoWithMessage(t *testing.T) {
	err := ErrInvalidParam.WithMessage("chunk_size must be positive")
	assert.Equal(t, "chunk_size must be positive", err.MessageEN)
	assert.Equal(t, ErrInvalidParam.Code, err.Code)

	err = ErrInvalidParam.WithMessagef("param %s is invalid", "chunk_overlap")
	assert.Equal(t, "param chunk_overlap is invalid", err.MessageEN)
}

func TestErrnoMessageByLanguage(t *testing.T) {
	err := &Errno{
		Code:      1001,
		MessageEN: "English message",
		MessageZH: "中文消息",
	}

	assert.Equal(t, "English message", err.Message("en"))
	assert.Equal(t, "中文消息", err.Message("zh"))
}

func TestErrnoTransportMappings(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrInvalidParam.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ErrNotFound.HTTPStatus())

	assert.Equal(t, codes.InvalidArgument, ErrInvalidParam.GRPCStatus())
	assert.Equal(t, codes.NotFound, ErrNotFound.GRPCStatus())
}

func TestErrnoIs(t *testing.T) {
	err := ErrInvalidParam.WithMessage("custom")

	assert.True(t, err.Is(ErrInvalidParam), "same code must match")
	assert.False(t, err.Is(ErrNotFound))
}

func TestCodeHelpers(t *testing.T) {
	err := ErrInvalidParam.WithMessage("test")

	assert.True(t, IsCode(err, ErrInvalidParam.Code))
	assert.False(t, IsCode(err, ErrNotFound.Code))

	assert.Equal(t, ErrInvalidParam.Code, GetCode(err))
	assert.Equal(t, -1, GetCode(fmt.Errorf("plain error")))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	err := ErrInvalidParam.WithMessage("test")
	assert.Same(t, err, FromError(err))

	plain := fmt.Errorf("milvus: collection not loaded")
	wrapped := FromError(plain)
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrInternal.Code, wrapped.Code)
	assert.Same(t, plain, wrapped.Unwrap())
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrInvalidParam.Code)
	require.True(t, ok)
	assert.Same(t, ErrInvalidParam, e)

	_, ok = Lookup(9999999)
	assert.False(t, ok)
}
