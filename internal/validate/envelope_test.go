// file: internal/validate/envelope_test.go
package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	e := NewEnvelope()
	err := e.Validate(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"example","params":{}}`))
	assert.NoError(t, err)
}

func TestValidateAcceptsNotification(t *testing.T) {
	e := NewEnvelope()
	err := e.Validate(context.Background(), []byte(`{"jsonrpc":"2.0","method":"$/progress","params":{"token":"t"}}`))
	assert.NoError(t, err)
}

func TestValidateAcceptsResponse(t *testing.T) {
	e := NewEnvelope()
	err := e.Validate(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"result":42}`))
	assert.NoError(t, err)
}

func TestValidateRejectsWrongVersion(t *testing.T) {
	e := NewEnvelope()
	err := e.Validate(context.Background(), []byte(`{"jsonrpc":"1.0","id":1,"method":"example"}`))
	assert.Error(t, err)
}

func TestValidateRejectsNotJSON(t *testing.T) {
	e := NewEnvelope()
	err := e.Validate(context.Background(), []byte(`not json`))
	require.Error(t, err)
}

func TestValidateRejectsMalformedErrorObject(t *testing.T) {
	e := NewEnvelope()
	err := e.Validate(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"error":{"message":"missing code"}}`))
	assert.Error(t, err)
}
