// file: internal/wire/message.go
package wire

import (
	"encoding/json"

	"github.com/dkoosis/rpcwire/internal/codec"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
)

// Version is the only JSON-RPC version this module speaks.
const Version = "2.0"

// Reserved method names.
const (
	MethodCancelRequest = "$/cancelRequest"
	MethodProgress      = "$/progress"
	MethodSetTrace      = "$/setTrace"
	MethodLogTrace      = "$/logTrace"
)

// envelope is the wire shape used to decode any incoming message before its
// kind (request/response/notification) is determined. It uses the ID type
// above instead of raw json.RawMessage for id handling.
type envelope struct {
	JSONRPC string               `json:"jsonrpc"`
	ID      *ID                  `json:"id,omitempty"`
	Method  string               `json:"method,omitempty"`
	Params  json.RawMessage      `json:"params,omitempty"`
	Result  json.RawMessage      `json:"result,omitempty"`
	Error   *rpcerr.ResponseError `json:"error,omitempty"`
}

// Request is an outbound or inbound call expecting a response.
type Request struct {
	ID     ID
	Method string
	Params json.RawMessage
}

// Response answers a Request.
type Response struct {
	ID     ID
	Result json.RawMessage
	Error  *rpcerr.ResponseError
}

// Notification is a fire-and-forget message; it carries no id.
type Notification struct {
	Method string
	Params json.RawMessage
}

// Kind classifies a decoded envelope.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindResponse
	KindNotification
)

// Decode classifies and parses data into exactly one of Request, Response, or
// Notification: a Request has a non-null id and a method; a Response has no
// method and carries a result, an error, or an id (a response with neither
// result nor error is classified here and rejected by the dispatcher); a
// Notification has a method and no id.
// ct, when non-nil, is the content-type codec the payload was framed with
// (resolved from the message's Content-Type header); nil decodes with
// encoding/json directly, matching ct's own default behavior.
func Decode(data []byte, ct codec.ContentTypeCodec, charset string) (kind Kind, req *Request, resp *Response, notif *Notification, err error) {
	var env envelope
	var decodeErr error
	if ct != nil {
		decodeErr = ct.Decode(data, charset, &env)
	} else {
		decodeErr = json.Unmarshal(data, &env)
	}
	if decodeErr != nil {
		return KindInvalid, nil, nil, nil, rpcerr.Wrap(decodeErr, "decode message")
	}

	hasID := env.ID != nil && !env.ID.IsNone()
	hasMethod := env.Method != ""
	hasResult := len(env.Result) > 0
	hasError := env.Error != nil

	switch {
	case hasMethod && hasID:
		return KindRequest, &Request{ID: *env.ID, Method: env.Method, Params: env.Params}, nil, nil, nil
	case hasMethod && !hasID:
		return KindNotification, nil, nil, &Notification{Method: env.Method, Params: env.Params}, nil
	case !hasMethod && (hasResult || hasError || env.ID != nil):
		id := NoID
		if env.ID != nil {
			id = *env.ID
		}
		return KindResponse, nil, &Response{ID: id, Result: env.Result, Error: env.Error}, nil, nil
	default:
		return KindInvalid, nil, nil, nil, nil
	}
}

// encode marshals v through ct when non-nil, falling back to encoding/json.
func encode(v any, ct codec.ContentTypeCodec, charset string) ([]byte, error) {
	if ct != nil {
		return ct.Encode(v, charset)
	}
	return json.Marshal(v)
}

// EncodeRequest renders r as a JSON-RPC request object, via ct when non-nil.
func EncodeRequest(r *Request, ct codec.ContentTypeCodec, charset string) ([]byte, error) {
	return encode(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      ID              `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}{Version, r.ID, r.Method, r.Params}, ct, charset)
}

// EncodeResponse renders r as a JSON-RPC response object, via ct when
// non-nil. Exactly one of Result/Error is marshalled.
func EncodeResponse(r *Response, ct codec.ContentTypeCodec, charset string) ([]byte, error) {
	out := struct {
		JSONRPC string                `json:"jsonrpc"`
		ID      ID                    `json:"id"`
		Result  json.RawMessage       `json:"result,omitempty"`
		Error   *rpcerr.ResponseError `json:"error,omitempty"`
	}{Version, r.ID, nil, nil}
	if r.Error != nil {
		out.Error = r.Error
	} else {
		out.Result = r.Result
		if out.Result == nil {
			out.Result = json.RawMessage("null")
		}
	}
	return encode(out, ct, charset)
}

// EncodeNotification renders n as a JSON-RPC notification object, via ct
// when non-nil.
func EncodeNotification(n *Notification, ct codec.ContentTypeCodec, charset string) ([]byte, error) {
	return encode(struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}{Version, n.Method, n.Params}, ct, charset)
}

// ShapeParams implements the positional-parameter shaping rules of spec
// §4.G "Parameter shaping" for untyped call sites: zero args omit params,
// one arg is used directly, and multiple args become a positional array.
func ShapeParams(args []any) (json.RawMessage, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return json.Marshal(args[0])
	default:
		return json.Marshal(args)
	}
}
