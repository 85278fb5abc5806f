package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shrinkbot/internal/services"
)

func TestAcquireCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	ws, err := Acquire(root, "0b5b5df3")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	want := filepath.Join(root, "job-0b5b5df3")
	if ws.Dir() != want {
		t.Fatalf("expected workspace dir %q, got %q", want, ws.Dir())
	}
	info, err := os.Stat(ws.Dir())
	if err != nil {
		t.Fatalf("stat workspace dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("workspace path is not a directory")
	}
}

func TestAcquireIsIdempotent(t *testing.T) {
	root := t.TempDir()
	first, err := Acquire(root, "abc")
	if err != nil {
		t.Fatalf("first Acquire returned error: %v", err)
	}
	second, err := Acquire(root, "abc")
	if err != nil {
		t.Fatalf("second Acquire returned error: %v", err)
	}
	if first.Dir() != second.Dir() {
		t.Fatalf("expected matching dirs, got %q and %q", first.Dir(), second.Dir())
	}
}

func TestAcquireRequiresRoot(t *testing.T) {
	if _, err := Acquire("   ", "abc"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty root, got %v", err)
	}
}

func TestAcquireRequiresJobID(t *testing.T) {
	if _, err := Acquire(t.TempDir(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty job id, got %v", err)
	}
}

func TestWorkspacePaths(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "abc")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	input := ws.InputPath("clip.mp4")
	if filepath.Dir(input) != ws.Dir() || filepath.Base(input) != "clip.mp4" {
		t.Fatalf("unexpected input path %q", input)
	}
	output := ws.OutputPath("clip.mp4")
	if filepath.Dir(output) != ws.Dir() || filepath.Base(output) != "compressed_clip.mp4" {
		t.Fatalf("unexpected output path %q", output)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "abc")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if err := os.WriteFile(ws.InputPath("clip.mp4"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := ws.Remove(); err != nil {
		t.Fatalf("first Remove returned error: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatal("workspace directory should have been removed")
	}
	if err := ws.Remove(); err != nil {
		t.Fatalf("second Remove returned error: %v", err)
	}
}
