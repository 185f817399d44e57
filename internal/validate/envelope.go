// Package validate offers optional structural validation of the JSON-RPC
// envelope shape: a compiled santhosh-tekuri jsonschema/v5 schema held
// behind a small interface, loaded once and reused for every message rather
// than re-parsed per call.
// file: internal/validate/envelope.go
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/dkoosis/rpcwire/internal/logging"
	"github.com/dkoosis/rpcwire/internal/rpcerr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema is the generic JSON-RPC 2.0 envelope shape: any
// one of request/response/notification must satisfy it, independent of
// method-specific payload schemas the caller may layer on separately.
const envelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["jsonrpc"],
  "properties": {
    "jsonrpc": { "const": "2.0" },
    "id": { "type": ["string", "number", "null"] },
    "method": { "type": "string" },
    "params": { "type": ["object", "array"] },
    "result": {},
    "error": {
      "type": "object",
      "required": ["code", "message"],
      "properties": {
        "code": { "type": "integer" },
        "message": { "type": "string" }
      }
    }
  },
  "oneOf": [
    { "required": ["method", "id"] },
    { "required": ["method"], "not": { "required": ["id"] } },
    { "not": { "required": ["method"] } }
  ]
}`

// Envelope validates raw wire bytes against the JSON-RPC envelope shape
// before the core attempts to decode them into a Request/Response/
// Notification. It is opt-in: the core works without one, and is carried
// as a strict mode rather than baked into the hot path.
type Envelope struct {
	mu     sync.RWMutex
	schema *jsonschema.Schema
	log    logging.Logger
}

// NewEnvelope compiles the built-in envelope schema. Compilation failure
// here would indicate a bug in envelopeSchema itself, not caller input, so
// it panics rather than returning an error a caller would have no sane
// recovery from.
func NewEnvelope() *Envelope {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("envelope.json", bytes.NewReader([]byte(envelopeSchema))); err != nil {
		panic(rpcerr.Wrap(err, "add envelope schema resource"))
	}
	compiled, err := c.Compile("envelope.json")
	if err != nil {
		panic(rpcerr.Wrap(err, "compile envelope schema"))
	}
	return &Envelope{schema: compiled, log: logging.GetLogger("validate")}
}

// Validate reports whether raw satisfies the JSON-RPC envelope shape. It is
// cheap enough to run on every inbound message when strict mode is enabled:
// a single compiled schema, no per-call recompilation.
func (e *Envelope) Validate(ctx context.Context, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return rpcerr.Wrap(err, "envelope: not valid JSON")
	}

	e.mu.RLock()
	schema := e.schema
	e.mu.RUnlock()

	if err := schema.Validate(doc); err != nil {
		e.log.Debug("envelope validation failed", "error", err)
		return rpcerr.Wrap(err, "envelope: does not conform to JSON-RPC 2.0")
	}
	return nil
}
