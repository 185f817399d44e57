// file: internal/codec/compression.go
package codec

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"

	"github.com/dkoosis/rpcwire/internal/rpcerr"
)

// GzipCodec implements the gzip content-encoding. Compression codecs are
// external plug-ins by design; no third-party compression library
// appears anywhere in the retrieval pack, so this one concrete case is built
// on compress/gzip rather than left unimplemented (see DESIGN.md).
type GzipCodec struct{}

func (GzipCodec) Name() string { return "gzip" }

func (GzipCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, rpcerr.Wrap(err, "gzip encode")
	}
	if err := w.Close(); err != nil {
		return nil, rpcerr.Wrap(err, "gzip encode: close")
	}
	return buf.Bytes(), nil
}

func (GzipCodec) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, rpcerr.Wrap(err, "gzip decode")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, rpcerr.Wrap(err, "gzip decode")
	}
	return out, nil
}

// DeflateCodec implements the raw-deflate content-encoding.
type DeflateCodec struct{}

func (DeflateCodec) Name() string { return "deflate" }

func (DeflateCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, rpcerr.Wrap(err, "deflate encode")
	}
	if _, err := w.Write(data); err != nil {
		return nil, rpcerr.Wrap(err, "deflate encode")
	}
	if err := w.Close(); err != nil {
		return nil, rpcerr.Wrap(err, "deflate encode: close")
	}
	return buf.Bytes(), nil
}

func (DeflateCodec) Decode(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, rpcerr.Wrap(err, "deflate decode")
	}
	return out, nil
}
