// file: internal/conn/connection_test.go
package conn

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/rpcwire/internal/cancel"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
)

// pair wires two Connections back to back over in-memory pipes, each reading
// what the other writes, mirroring how an editor and a language server would
// be connected over stdio.
func pair(t *testing.T) (client, server *Connection) {
	t.Helper()
	clientReadsFromServer, serverWritesToClient := io.Pipe()
	serverReadsFromClient, clientWritesToServer := io.Pipe()

	client = NewConnection(clientWritesToServer, Options{})
	server = NewConnection(serverWritesToClient, Options{})

	ctx, cancelFn := context.WithCancel(context.Background())
	t.Cleanup(cancelFn)

	require.NoError(t, client.Listen(ctx, clientReadsFromServer))
	require.NoError(t, server.Listen(ctx, serverReadsFromClient))
	return client, server
}

func TestRequestResponseRoundTrip(t *testing.T) {
	client, server := pair(t)

	require.NoError(t, server.OnRequest("echo", func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error) {
		var p struct{ Text string }
		_ = json.Unmarshal(params, &p)
		return map[string]string{"echoed": p.Text}, nil
	}))

	result, err := client.SendRequest(context.Background(), "echo", nil, map[string]string{"Text": "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"echoed":"hi"}`, string(result))
}

func TestMethodNotFoundProducesResponseError(t *testing.T) {
	client, _ := pair(t)

	_, err := client.SendRequest(context.Background(), "nonexistent", nil)
	require.Error(t, err)
	re, ok := rpcerr.AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, int32(rpcerr.CodeMethodNotFound), re.Code)
}

func TestHandlerErrorBecomesInternalError(t *testing.T) {
	client, server := pair(t)
	require.NoError(t, server.OnRequest("boom", func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error) {
		return nil, rpcerr.New("handler exploded")
	}))

	_, err := client.SendRequest(context.Background(), "boom", nil)
	require.Error(t, err)
	re, ok := rpcerr.AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, int32(rpcerr.CodeInternalError), re.Code)
	assert.Contains(t, re.Message, "handler exploded")
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	client, server := pair(t)
	require.NoError(t, server.OnRequest("panics", func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error) {
		panic("boom")
	}))

	_, err := client.SendRequest(context.Background(), "panics", nil)
	require.Error(t, err)
	re, ok := rpcerr.AsResponseError(err)
	require.True(t, ok)
	assert.Contains(t, re.Message, "handler panic")
}

func TestStructuredResponseErrorPassesThroughUnchanged(t *testing.T) {
	client, server := pair(t)
	require.NoError(t, server.OnRequest("typed-error", func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error) {
		return nil, rpcerr.NewResponseError(rpcerr.CodeInvalidParams, "bad input", nil)
	}))

	_, err := client.SendRequest(context.Background(), "typed-error", nil)
	require.Error(t, err)
	re, ok := rpcerr.AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, int32(rpcerr.CodeInvalidParams), re.Code)
	assert.Equal(t, "bad input", re.Message)
}

func TestNotificationDispatch(t *testing.T) {
	client, server := pair(t)

	received := make(chan string, 1)
	require.NoError(t, server.OnNotification("ping", func(ctx context.Context, params json.RawMessage) {
		received <- string(params)
	}))

	require.NoError(t, client.SendNotification(context.Background(), "ping", "hello"))

	select {
	case got := <-received:
		assert.Equal(t, `"hello"`, got)
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestCancellationPropagatesToHandlerToken(t *testing.T) {
	client, server := pair(t)

	handlerCancelled := make(chan struct{})
	require.NoError(t, server.OnRequest("slow", func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error) {
		token.OnCancelled(func() { close(handlerCancelled) })
		select {
		case <-handlerCancelled:
		case <-time.After(2 * time.Second):
		}
		return nil, rpcerr.NewResponseError(rpcerr.CodeRequestCancelled, "cancelled", nil)
	}))

	src := cancel.NewSource()
	go func() {
		time.Sleep(30 * time.Millisecond)
		src.Cancel()
	}()

	_, err := client.SendRequest(context.Background(), "slow", src.Token())
	require.Error(t, err)
	re, ok := rpcerr.AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, int32(rpcerr.CodeRequestCancelled), re.Code)
}

func TestProgressNotificationRoutedToSubscriber(t *testing.T) {
	client, server := pair(t)

	got := make(chan json.RawMessage, 1)
	client.OnProgress("tok-1", func(raw json.RawMessage) { got <- raw })

	require.NoError(t, server.SendProgress(context.Background(), "tok-1", map[string]int{"percent": 50}))

	select {
	case raw := <-got:
		assert.JSONEq(t, `{"percent":50}`, string(raw))
	case <-time.After(time.Second):
		t.Fatal("progress never delivered")
	}
}

func TestDoubleListenReturnsError(t *testing.T) {
	client, _ := pair(t)
	err := client.Listen(context.Background(), nil)
	assert.ErrorIs(t, err, rpcerr.ErrAlreadyListen)
}

func TestSendRequestAfterDisposeIsRejected(t *testing.T) {
	client, _ := pair(t)
	require.NoError(t, client.Dispose())

	_, err := client.SendRequest(context.Background(), "anything", nil)
	assert.Error(t, err)
}

func TestOnRequestAfterDisposeIsRejected(t *testing.T) {
	client, _ := pair(t)
	require.NoError(t, client.Dispose())

	err := client.OnRequest("anything", func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, rpcerr.ErrClosed)
}

func TestDisposeIsIdempotent(t *testing.T) {
	client, _ := pair(t)
	require.NoError(t, client.Dispose())
	assert.NoError(t, client.Dispose())
}

func TestPendingRequestsRejectedOnDispose(t *testing.T) {
	client, server := pair(t)

	started := make(chan struct{})
	require.NoError(t, server.OnRequest("block", func(ctx context.Context, params json.RawMessage, token cancel.Token) (any, error) {
		close(started)
		done := make(chan struct{})
		token.OnCancelled(func() { close(done) })
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
		return nil, rpcerr.New("request abandoned")
	}))

	errCh := make(chan error, 1)
	go func() {
		_, err := client.SendRequest(context.Background(), "block", nil)
		errCh <- err
	}()

	<-started
	require.NoError(t, client.Dispose())

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("pending request never rejected on dispose")
	}
}
