package fileutil_test

import (
	"path/filepath"
	"testing"

	"shrinkbot/internal/fileutil"
	"shrinkbot/internal/testsupport"
)

func TestFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.mp4")
	testsupport.WriteVideoFile(t, path, 2048)

	size, err := fileutil.FileSize(path)
	if err != nil {
		t.Fatalf("FileSize returned error: %v", err)
	}
	if size != 2048 {
		t.Fatalf("expected 2048 bytes, got %d", size)
	}
}

func TestFileSizeMissing(t *testing.T) {
	if _, err := fileutil.FileSize(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileSizeDirectory(t *testing.T) {
	if _, err := fileutil.FileSize(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestFormatMegabytes(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0.00 MB"},
		{1024 * 1024, "1.00 MB"},
		{31457280, "30.00 MB"},
		{11010048, "10.50 MB"},
	}
	for _, tc := range cases {
		if got := fileutil.FormatMegabytes(tc.bytes); got != tc.want {
			t.Fatalf("FormatMegabytes(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}
