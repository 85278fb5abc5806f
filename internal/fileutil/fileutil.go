// Package fileutil provides small file helpers shared by the pipeline and
// preflight checks.
package fileutil

import (
	"fmt"
	"os"
)

const bytesPerMegabyte = 1024 * 1024

// FileSize returns the size of the file at path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("stat %s: is a directory", path)
	}
	return info.Size(), nil
}

// Megabytes converts a byte count to megabytes.
func Megabytes(bytes int64) float64 {
	return float64(bytes) / bytesPerMegabyte
}

// FormatMegabytes renders a byte count as "12.34 MB", the caption format.
func FormatMegabytes(bytes int64) string {
	return fmt.Sprintf("%.2f MB", Megabytes(bytes))
}
