// file: internal/rpcerr/errors_test.go
package rpcerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailsRoundTrip(t *testing.T) {
	err := WithDetails(New("boom"), CategoryHandler, CodeInternalError, map[string]any{"method": "foo"})
	assert.Equal(t, CategoryHandler, GetCategory(err))
	code, ok := GetCode(err)
	require.True(t, ok)
	assert.Equal(t, int32(CodeInternalError), code)
}

func TestGetCategoryMissing(t *testing.T) {
	assert.Equal(t, Category(""), GetCategory(New("plain")))
}

func TestAsResponseErrorUnwrapsExisting(t *testing.T) {
	re := NewResponseError(CodeMethodNotFound, "method not found", nil)
	wrapped := Wrap(re, "handling request")

	got, ok := AsResponseError(wrapped)
	require.True(t, ok)
	assert.Same(t, re, got)
}

func TestAsResponseErrorFalseForPlainError(t *testing.T) {
	_, ok := AsResponseError(New("plain error"))
	assert.False(t, ok)
}

func TestToResponseErrorPassesThroughStructured(t *testing.T) {
	re := NewResponseError(CodeInvalidParams, "bad params", nil)
	got := ToResponseError(re)
	assert.Same(t, re, got)
}

func TestToResponseErrorRedactsSensitiveDetails(t *testing.T) {
	err := WithDetails(New("auth failed"), CategoryHandler, CodeInternalError, map[string]any{
		"token":  "supersecret",
		"method": "initialize",
	})
	re := ToResponseError(err)
	require.NotNil(t, re.Data)
	assert.NotContains(t, string(re.Data), "supersecret")
	assert.Contains(t, string(re.Data), "initialize")
}

func TestInternalErrorForWrapsMethodAndCause(t *testing.T) {
	re := InternalErrorFor("example", New("db unavailable"))
	assert.Equal(t, int32(CodeInternalError), re.Code)
	assert.Contains(t, re.Message, "example")
	assert.Contains(t, re.Message, "db unavailable")
}

func TestInReservedRange(t *testing.T) {
	assert.True(t, InReservedRange(CodeInvalidParams))
	assert.False(t, InReservedRange(-1))
}

func TestUserFacingMessageKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Method not found", UserFacingMessage(CodeMethodNotFound))
	assert.Equal(t, "Unknown error", UserFacingMessage(-1))
}
