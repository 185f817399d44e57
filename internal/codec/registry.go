// Package codec implements a registry of named codecs: content-type codecs
// (message <-> bytes) and content-encoding codecs (bytes <-> bytes), each a
// pure-function plug-in point the core consumes through a narrow interface.
// file: internal/codec/registry.go
package codec

import (
	"encoding/json"
	"strings"

	"github.com/dkoosis/rpcwire/internal/rpcerr"
)

// ContentTypeCodec serializes/deserializes the message payload itself.
type ContentTypeCodec interface {
	Name() string
	Encode(v any, charset string) ([]byte, error)
	Decode(data []byte, charset string, v any) error
}

// ContentEncodingCodec transforms already-serialized bytes, e.g. gzip.
type ContentEncodingCodec interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// DefaultContentType names the codec used when no Content-Type header is
// present: application/vscode-jsonrpc, charset=utf-8; application/json is
// also accepted.
const DefaultContentType = "application/vscode-jsonrpc"

// Registry holds named codecs of both kinds. Build one with NewRegistry,
// which pre-registers the JSON content-type codec under both accepted names;
// the zero value has nil maps and panics on Register.
type Registry struct {
	contentTypes     map[string]ContentTypeCodec
	contentEncodings map[string]ContentEncodingCodec
}

// NewRegistry returns a Registry with the default JSON content-type codec
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		contentTypes:     make(map[string]ContentTypeCodec),
		contentEncodings: make(map[string]ContentEncodingCodec),
	}
	j := jsonCodec{}
	r.RegisterContentType(DefaultContentType, j)
	r.RegisterContentType("application/json", j)
	return r
}

func (r *Registry) RegisterContentType(name string, c ContentTypeCodec) {
	r.contentTypes[name] = c
}

func (r *Registry) RegisterContentEncoding(name string, c ContentEncodingCodec) {
	r.contentEncodings[name] = c
}

// ContentType looks up a content-type codec by name, falling back to the
// default JSON codec for an empty name.
func (r *Registry) ContentType(name string) (ContentTypeCodec, bool) {
	if name == "" {
		name = DefaultContentType
	}
	c, ok := r.contentTypes[name]
	return c, ok
}

// ContentEncoding looks up a content-encoding codec by name.
func (r *Registry) ContentEncoding(name string) (ContentEncodingCodec, bool) {
	c, ok := r.contentEncodings[name]
	return c, ok
}

// SplitContentType splits a Content-Type header value such as
// "application/vscode-jsonrpc; charset=utf-8" into its bare media type and
// charset parameter. A header with no charset parameter returns "" for it.
func SplitContentType(header string) (name, charset string) {
	parts := strings.Split(header, ";")
	name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if v, ok := strings.CutPrefix(p, "charset="); ok {
			charset = strings.Trim(v, `"`)
		}
	}
	return name, charset
}

// Supported returns the names of all registered content-encoding codecs, the
// set TransferContext negotiates against.
func (r *Registry) Supported() []string {
	names := make([]string, 0, len(r.contentEncodings))
	for name := range r.contentEncodings {
		names = append(names, name)
	}
	return names
}

// jsonCodec is the default, always-registered application/json content-type
// codec. Non-UTF-8 charsets are rejected rather than silently mis-decoded.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(v any, charset string) ([]byte, error) {
	if charset != "" && charset != "utf-8" && charset != "UTF-8" {
		return nil, rpcerr.Newf("json codec: unsupported charset %q", charset)
	}
	return json.Marshal(v)
}

func (jsonCodec) Decode(data []byte, charset string, v any) error {
	if charset != "" && charset != "utf-8" && charset != "UTF-8" {
		return rpcerr.Newf("json codec: unsupported charset %q", charset)
	}
	return json.Unmarshal(data, v)
}
