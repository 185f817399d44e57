// Package rpcwire is the public facade over the connection engine: the
// surface an editor or language-server process imports, re-exporting a
// curated subset of internal types rather than letting callers reach into
// internal/.
// file: pkg/rpcwire/rpcwire.go
package rpcwire

import (
	"context"
	"io"
	"time"

	"github.com/dkoosis/rpcwire/internal/cancel"
	"github.com/dkoosis/rpcwire/internal/codec"
	"github.com/dkoosis/rpcwire/internal/compat"
	"github.com/dkoosis/rpcwire/internal/config"
	"github.com/dkoosis/rpcwire/internal/conn"
	"github.com/dkoosis/rpcwire/internal/stream"
	"github.com/dkoosis/rpcwire/internal/trace"
	"github.com/dkoosis/rpcwire/internal/validate"
)

// Settings is the YAML-backed connection configuration loaded by
// config.Load, re-exported so a host process never has to import internal/
// itself to read a config file on disk.
type Settings = config.Settings

// LoadSettings reads and parses Settings from a YAML file, starting from
// DefaultSettings so an omitted section keeps its default.
func LoadSettings(path string) (*Settings, error) {
	return config.Load(path)
}

// DefaultSettings returns Settings carrying the package defaults.
func DefaultSettings() *Settings {
	return config.New()
}

// Connection is a bidirectional JSON-RPC 2.0 message connection.
type Connection = conn.Connection

// RequestHandler answers an inbound request.
type RequestHandler = conn.RequestHandler

// NotificationHandler reacts to an inbound notification.
type NotificationHandler = conn.NotificationHandler

// CancellationToken observes a fire-once cancellation signal.
type CancellationToken = cancel.Token

// CancellationSource is the owning side of a CancellationToken.
type CancellationSource = cancel.Source

// TraceLevel controls connection-wide trace verbosity.
type TraceLevel = trace.Level

const (
	TraceOff      = trace.Off
	TraceMessages = trace.Messages
	TraceVerbose  = trace.Verbose
)

// Tracer receives formatted trace lines.
type Tracer = trace.Tracer

// ContentTypeCodec and ContentEncodingCodec let callers register additional
// wire codecs beyond the built-in JSON/gzip/deflate set.
type ContentTypeCodec = codec.ContentTypeCodec
type ContentEncodingCodec = codec.ContentEncodingCodec

// Config bundles the construction-time options for a Connection.
type Config struct {
	// RequestTimeout bounds inbound handler execution; 0 disables it.
	RequestTimeout time.Duration
	// PartialMessageTimeout bounds how long the reader waits on a stalled
	// partial message before warning; 0 uses the package default and a
	// negative value disables the timer.
	PartialMessageTimeout time.Duration
	// PreferredRequestEncodings/ResponseEncodings/NotificationEncodings are
	// consulted before any per-message Accept-Encoding negotiation.
	PreferredRequestEncodings      []string
	PreferredResponseEncodings     []string
	PreferredNotificationEncodings []string
	// Codecs, if set, replaces the default registry (JSON plus gzip and
	// deflate). Use
	// NewDefaultCodecs to start from the defaults and layer on extras.
	Codecs *codec.Registry
	// CancellationDir, if set, enables file-backed cancellation: see
	// conn.Options.CancellationDir.
	CancellationDir string
}

// NewConfigFromSettings builds a Config from loaded Settings, expanding a
// leading ~ in the cancellation directory. A nil s returns the zero Config.
func NewConfigFromSettings(s *Settings) (Config, error) {
	if s == nil {
		return Config{}, nil
	}
	dir := s.Cancellation.Dir
	if dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return Config{}, err
		}
		dir = expanded
	}
	partial := s.PartialMessageTimeout()
	if partial == 0 {
		partial = -1 // Settings' 0 means disabled; Config's 0 means default
	}
	return Config{
		RequestTimeout:                 s.RequestTimeout(),
		PartialMessageTimeout:          partial,
		PreferredRequestEncodings:      s.Encodings.PreferredRequestEncodings,
		PreferredResponseEncodings:     s.Encodings.PreferredResponseEncodings,
		PreferredNotificationEncodings: s.Encodings.PreferredNotificationEncodings,
		CancellationDir:                dir,
	}, nil
}

// NewDefaultCodecs returns a registry with JSON content-type handling and
// gzip/deflate content-encoding support pre-registered.
func NewDefaultCodecs() *codec.Registry {
	reg := codec.NewRegistry()
	gz := codec.GzipCodec{}
	df := codec.DeflateCodec{}
	reg.RegisterContentEncoding(gz.Name(), gz)
	reg.RegisterContentEncoding(df.Name(), df)
	return reg
}

// NewConnection wires a Connection over w. Call Listen with the peer's
// readable half to begin dispatch.
func NewConnection(w io.Writer, cfg Config) *Connection {
	reg := cfg.Codecs
	if reg == nil {
		reg = NewDefaultCodecs()
	}
	partialTimeout := cfg.PartialMessageTimeout
	if partialTimeout == 0 {
		partialTimeout = stream.DefaultPartialMessageTimeout
	}
	return conn.NewConnection(w, conn.Options{
		Registry:                     reg,
		RequestTimeout:               cfg.RequestTimeout,
		PartialMessageTimeout:        partialTimeout,
		DefaultRequestEncodings:      cfg.PreferredRequestEncodings,
		DefaultResponseEncodings:     cfg.PreferredResponseEncodings,
		DefaultNotificationEncodings: cfg.PreferredNotificationEncodings,
		CancellationDir:              cfg.CancellationDir,
	})
}

// Listen starts dispatch over r and transitions the connection to Listening.
func Listen(ctx context.Context, c *Connection, r io.Reader) error {
	return c.Listen(ctx, r)
}

// Envelope validates raw wire bytes against the JSON-RPC 2.0 envelope shape,
// a strict-mode check a caller can run ahead of Connection's own decoding.
type Envelope = validate.Envelope

// NewEnvelope compiles the built-in envelope schema once for reuse.
func NewEnvelope() *Envelope {
	return validate.NewEnvelope()
}

// ObjectStream adapts this package's Content-Length framing to
// sourcegraph/jsonrpc2's ObjectStream, for a caller already invested in
// that library's Conn/Handler types.
type ObjectStream = compat.ObjectStream

// NewObjectStream wraps rw as a jsonrpc2.ObjectStream.
func NewObjectStream(rw io.ReadWriter) *ObjectStream {
	return compat.NewObjectStream(rw)
}
