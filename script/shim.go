package script

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// ShimName is the module name client code imports the command channel from.
const ShimName = "Bridge"

//go:embed shim/Bridge.ts
var shimSource []byte

// ShimSource returns the embedded compatibility module.
func ShimSource() []byte {
	return append([]byte(nil), shimSource...)
}

// WriteShim writes the compatibility module into the client root,
// overwriting whatever is there. The write goes through a temporary file
// and a rename so concurrent compiles never read a partial file.
func WriteShim(l Layout) (string, error) {
	dst := l.ShimPath()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("write shim: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".bridge-*.tmp")
	if err != nil {
		return "", fmt.Errorf("write shim: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(shimSource); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write shim: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write shim: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("write shim: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("write shim: %w", err)
	}
	return dst, nil
}
