package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// ftypBox opens a minimal MP4 container, enough for tests that only need
// a video-shaped file of a known size.
var ftypBox = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}

// WriteVideoFile writes a video-shaped file of size bytes at path,
// creating parent directories as needed. Sizes below the container
// header are rounded up to it.
func WriteVideoFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if header := int64(len(ftypBox)); size < header {
		size = header
	}
	payload := bytes.Repeat([]byte{0x00}, int(size))
	copy(payload, ftypBox)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
