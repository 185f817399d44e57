// Package wire defines the JSON-RPC 2.0 message data model shared
// by every other rpcwire package: the Message sum type, request/response ids,
// and the reserved method names.
// file: internal/wire/id.go
package wire

import (
	"encoding/json"
	"strconv"
)

// ID is a JSON-RPC request/response identifier. It holds either a string or
// a number, never both, and distinguishes "no id" (IsNone) from the numeric
// id 0.
type ID struct {
	str    string
	num    int64
	isStr  bool
	isNone bool
}

// NoID represents the absence of an id (used by notifications and by a
// response whose id is null).
var NoID = ID{isNone: true}

// NewNumberID builds an integer-valued id.
func NewNumberID(n int64) ID { return ID{num: n} }

// NewStringID builds a string-valued id.
func NewStringID(s string) ID { return ID{str: s, isStr: true} }

// IsNone reports whether this ID represents "no id".
func (id ID) IsNone() bool { return id.isNone }

// Key renders the id as a stable map key, used by the correlation table.
func (id ID) Key() string {
	if id.isNone {
		return ""
	}
	if id.isStr {
		return "s:" + id.str
	}
	return "n:" + strconv.FormatInt(id.num, 10)
}

func (id ID) String() string {
	if id.isNone {
		return "<none>"
	}
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON renders the id the way the wire expects: a JSON number, a JSON
// string, or JSON null.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isNone {
		return []byte("null"), nil
	}
	if id.isStr {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

// UnmarshalJSON accepts a JSON number, string, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{isNone: true}
		return nil
	}
	var asNum int64
	if err := json.Unmarshal(data, &asNum); err == nil {
		*id = ID{num: asNum}
		return nil
	}
	var asStr string
	if err := json.Unmarshal(data, &asStr); err != nil {
		return err
	}
	*id = ID{str: asStr, isStr: true}
	return nil
}
