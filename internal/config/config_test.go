// file: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, 10*time.Second, s.PartialMessageTimeout())
	assert.Equal(t, time.Duration(0), s.RequestTimeout())
	assert.Equal(t, "~/.cache/rpcwire/cancel", s.Cancellation.Dir)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
transport:
  partial_message_timeout_ms: 5000
  request_timeout_ms: 2000
encodings:
  preferred_request_encodings: ["gzip"]
cancellation:
  dir: "/tmp/cancel"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.PartialMessageTimeout())
	assert.Equal(t, 2*time.Second, s.RequestTimeout())
	assert.Equal(t, []string{"gzip"}, s.Encodings.PreferredRequestEncodings)
	assert.Equal(t, "/tmp/cancel", s.Cancellation.Dir)
}

func TestLoadPartialOverrideKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport:\n  request_timeout_ms: 1500\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, s.RequestTimeout())
	assert.Equal(t, 10*time.Second, s.PartialMessageTimeout(), "unspecified fields keep New()'s defaults")
}

func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/cache/cancel")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache/cancel"), expanded)

	same, err := ExpandPath("/tmp/cache")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", same)
}
