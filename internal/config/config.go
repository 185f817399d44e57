// Package config handles connection/transport configuration: a Settings
// struct with yaml struct tags, a New() constructor carrying sensible
// defaults, and a package-level logger.
// file: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/rpcwire/internal/logging"
)

var logger = logging.GetLogger("config")

// Settings is the connection-level configuration a process builds its
// rpcwire.Connection from.
type Settings struct {
	Transport    TransportConfig    `yaml:"transport"`
	Encodings    EncodingConfig     `yaml:"encodings"`
	Cancellation CancellationConfig `yaml:"cancellation"`
}

// TransportConfig configures the framing/reader layer.
type TransportConfig struct {
	// PartialMessageTimeoutMS is the StreamReader's re-arming timer, in
	// milliseconds. 0 disables it.
	PartialMessageTimeoutMS int `yaml:"partial_message_timeout_ms"`
	// RequestTimeoutMS bounds inbound handler execution. 0 disables it.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
}

// EncodingConfig lists the content-encoding names tried, in order; a
// supported preferred encoding takes precedence over per-message
// Accept-Encoding negotiation.
type EncodingConfig struct {
	PreferredRequestEncodings      []string `yaml:"preferred_request_encodings"`
	PreferredResponseEncodings     []string `yaml:"preferred_response_encodings"`
	PreferredNotificationEncodings []string `yaml:"preferred_notification_encodings"`
}

// CancellationConfig configures the optional file-based cross-process
// cancellation signal.
type CancellationConfig struct {
	// Dir is the directory watched for presence files, one per cancelled
	// request id. May start with ~ for the user's home directory.
	Dir string `yaml:"dir"`
}

// New creates a new configuration with default values: a 10s
// partial-message timer, no request timeout, no
// preferred encodings (negotiation falls back to identity), and
// cancellation files under the user's cache directory.
func New() *Settings {
	logger.Debug("creating connection settings with defaults")
	return &Settings{
		Transport: TransportConfig{
			PartialMessageTimeoutMS: 10_000,
			RequestTimeoutMS:        0,
		},
		Encodings: EncodingConfig{},
		Cancellation: CancellationConfig{
			Dir: "~/.cache/rpcwire/cancel",
		},
	}
}

// Load reads and parses Settings from a YAML file at path, starting from
// New's defaults so an omitted section keeps its default rather than
// zeroing out.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config.Load: read %s", path)
	}
	s := New()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "config.Load: parse %s", path)
	}
	return s, nil
}

// PartialMessageTimeout returns the configured partial-message timer as a
// time.Duration, 0 meaning disabled.
func (s *Settings) PartialMessageTimeout() time.Duration {
	return time.Duration(s.Transport.PartialMessageTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the configured per-handler timeout, 0 meaning
// disabled.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.Transport.RequestTimeoutMS) * time.Millisecond
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config.ExpandPath: failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
