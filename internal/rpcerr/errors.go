// file: internal/rpcerr/errors.go
package rpcerr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// ResponseError is the wire shape of a JSON-RPC error object.
type ResponseError struct {
	Code    int32           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewResponseError builds a ResponseError, marshalling data if non-nil.
func NewResponseError(code int32, message string, data any) *ResponseError {
	re := &ResponseError{Code: code, Message: message}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			re.Data = raw
		}
	}
	return re
}

// Sentinel base errors, marked onto wrapped causes so callers can test
// membership with errors.Is regardless of the wrapping added along the way.
var (
	ErrDisposed      = errors.New("connection disposed")
	ErrClosed        = errors.New("connection closed")
	ErrNotListening  = errors.New("connection is not listening")
	ErrAlreadyListen = errors.New("connection is already listening")
	ErrWriteFailed   = errors.New("message write failed")
	ErrReadFailed    = errors.New("message read failed")
	ErrUnknownID     = errors.New("response id has no pending request")
)

// New and Wrap are thin aliases over cockroachdb/errors kept local so every
// package in this module imports one error package, not two.
func New(msg string) error                         { return errors.New(msg) }
func Newf(format string, args ...any) error         { return errors.Newf(format, args...) }
func Wrap(err error, msg string) error              { return errors.Wrap(err, msg) }
func Wrapf(err error, format string, a ...any) error { return errors.Wrapf(err, format, a...) }

// WithDetails marks err with category/code/context as detail strings so
// GetCategory/GetCode/GetContext can recover them later without a parallel
// struct-based error type.
func WithDetails(err error, category Category, code int32, context map[string]any) error {
	err = errors.WithDetail(err, fmt.Sprintf("category:%s", category))
	err = errors.WithDetail(err, fmt.Sprintf("code:%d", code))
	for k, v := range context {
		err = errors.WithDetail(err, fmt.Sprintf("%s:%v", k, v))
	}
	return err
}

var detailPattern = regexp.MustCompile(`^([^:]+):(.+)$`)

// GetCategory scans the detail strings attached to err's chain for a
// "category:" entry.
func GetCategory(err error) Category {
	for _, d := range errors.GetAllDetails(err) {
		if m := detailPattern.FindStringSubmatch(d); m != nil && m[1] == "category" {
			return Category(m[2])
		}
	}
	return ""
}

// GetCode scans the detail strings attached to err's chain for a "code:" entry.
func GetCode(err error) (int32, bool) {
	for _, d := range errors.GetAllDetails(err) {
		if m := detailPattern.FindStringSubmatch(d); m != nil && m[1] == "code" {
			var code int32
			if _, scanErr := fmt.Sscanf(m[2], "%d", &code); scanErr == nil {
				return code, true
			}
		}
	}
	return 0, false
}

var sensitiveKeywords = []string{"token", "password", "secret", "key", "auth", "credential", "session"}

func containsSensitiveKeyword(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// AsResponseError reports whether err's chain already carries a structured
// *ResponseError,
// returning it unwrapped if so.
func AsResponseError(err error) (*ResponseError, bool) {
	var re *ResponseError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// ToResponseError converts any Go error into a wire-safe ResponseError. A
// *ResponseError already on the chain is passed through unchanged (per §7.3,
// "structured ResponseError rethrown unchanged"); anything else gets the code
// tagged on it via WithDetails, or InternalError if untagged, with a safe,
// redacted data payload.
func ToResponseError(err error) *ResponseError {
	if err == nil {
		return nil
	}
	var re *ResponseError
	if errors.As(err, &re) {
		return re
	}

	code := int32(CodeInternalError)
	if c, ok := GetCode(err); ok {
		code = c
	}

	data := map[string]any{}
	for _, d := range errors.GetAllDetails(err) {
		m := detailPattern.FindStringSubmatch(d)
		if m == nil || m[1] == "category" || m[1] == "code" {
			continue
		}
		if containsSensitiveKeyword(m[1]) {
			continue
		}
		data[m[1]] = m[2]
	}
	if len(data) == 0 {
		return NewResponseError(code, err.Error(), nil)
	}
	return NewResponseError(code, err.Error(), data)
}

// WriteFailure marks err as ErrWriteFailed and tags it with
// CodeMessageWriteError/CategoryTransport, so a connection-level OnError
// subscriber can classify a transport write failure with errors.Is/GetCode
// regardless of the underlying cause.
func WriteFailure(err error) error {
	return WithDetails(errors.Mark(err, ErrWriteFailed), CategoryTransport, CodeMessageWriteError, nil)
}

// ReadFailure is WriteFailure's read-path counterpart, marking err as
// ErrReadFailed/CodeMessageReadError.
func ReadFailure(err error) error {
	return WithDetails(errors.Mark(err, ErrReadFailed), CategoryTransport, CodeMessageReadError, nil)
}

// UnknownID reports an inbound response whose id has no corresponding
// pending request, marked as ErrUnknownID so subscribers can distinguish it
// from other correlation failures.
func UnknownID(id string) error {
	marked := errors.Mark(Newf("response id %s has no pending request", id), ErrUnknownID)
	return errors.WithDetail(marked, fmt.Sprintf("category:%s", CategoryCorrelation))
}

// InternalErrorFor builds the InternalError response body for a plain
// (non-structured) handler failure.
func InternalErrorFor(method string, cause error) *ResponseError {
	if cause == nil {
		return NewResponseError(CodeInternalError, "internal error", nil)
	}
	return NewResponseError(CodeInternalError,
		fmt.Sprintf("Request %s failed with message: %s", method, cause.Error()), nil)
}
