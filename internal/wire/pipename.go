// file: internal/wire/pipename.go
package wire

import (
	"encoding/hex"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"
)

// GeneratePipeName produces a platform-specific opaque transport address
// from 21 bytes of random identifier material, matching the sizing
// editor/language-server tooling uses for its named-pipe/socket paths.
func GeneratePipeName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate pipe name: %w", err)
	}
	raw := id[:]
	// uuid.NewRandom yields 16 bytes; pad to 21 with a second draw to match
	// the conventional named-pipe identifier width.
	extra, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate pipe name: %w", err)
	}
	raw = append(raw, extra[:5]...)
	hexID := hex.EncodeToString(raw)

	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`\\.\pipe\vscode-jsonrpc-%s-sock`, hexID), nil
	}
	return fmt.Sprintf("%s/vscode-%s.sock", os.TempDir(), hexID), nil
}
