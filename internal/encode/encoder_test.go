package encode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"shrinkbot/internal/logging"
	"shrinkbot/internal/services"
)

func TestRequestArgs(t *testing.T) {
	req := Request{
		InputPath:  "/work/input.mp4",
		OutputPath: "/work/compressed_input.mp4",
	}
	want := []string{
		"-y",
		"-i", "/work/input.mp4",
		"-vf", "scale=-2:720",
		"-c:v", "libx264",
		"-crf", "29",
		"-preset", "slow",
		"-c:a", "aac",
		"/work/compressed_input.mp4",
	}
	if got := req.Args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected ffmpeg arguments\n got: %v\nwant: %v", got, want)
	}
}

func TestNewRunnerWithBinary(t *testing.T) {
	runner := NewRunner(logging.NewNop(), WithBinary("/opt/ffmpeg"))
	if runner.binary != "/opt/ffmpeg" {
		t.Fatalf("expected binary override to be applied, got %q", runner.binary)
	}
}

func TestRunnerRequiresInput(t *testing.T) {
	runner := NewRunner(logging.NewNop())
	err := runner.Run(context.Background(), Request{OutputPath: "/tmp/out.mp4"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing input, got %v", err)
	}
}

func TestRunnerRequiresOutput(t *testing.T) {
	runner := NewRunner(logging.NewNop())
	err := runner.Run(context.Background(), Request{InputPath: "/tmp/in.mp4"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing output, got %v", err)
	}
}

func TestRunnerSuccess(t *testing.T) {
	var capturedName string
	var capturedArgs []string
	setHelperCommand(t, "success", func(name string, args []string) {
		capturedName = name
		capturedArgs = append([]string(nil), args...)
	})

	runner := NewRunner(logging.NewNop())
	tempDir := t.TempDir()
	req := Request{
		InputPath:  filepath.Join(tempDir, "input.mp4"),
		OutputPath: filepath.Join(tempDir, "compressed_input.mp4"),
	}
	if err := runner.Run(context.Background(), req); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if capturedName != "ffmpeg" {
		t.Fatalf("expected default ffmpeg binary, got %q", capturedName)
	}
	if !reflect.DeepEqual(capturedArgs, req.Args()) {
		t.Fatalf("expected command args %v, got %v", req.Args(), capturedArgs)
	}
}

func TestRunnerFailure(t *testing.T) {
	setHelperCommand(t, "failure", nil)

	runner := NewRunner(logging.NewNop())
	err := runner.Run(context.Background(), Request{InputPath: "/tmp/in.mp4", OutputPath: "/tmp/out.mp4"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Fatalf("expected error to carry ffmpeg output, got %q", err.Error())
	}
}

func TestRunnerCanceled(t *testing.T) {
	setHelperCommand(t, "hang", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(logging.NewNop())
	err := runner.Run(ctx, Request{InputPath: "/tmp/in.mp4", OutputPath: "/tmp/out.mp4"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error for canceled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation to surface, got %v", err)
	}
}

func TestLastOutputLines(t *testing.T) {
	output := []byte("frame=  100\n\nframe=  200\nError opening output\nConversion failed!\n")
	got := lastOutputLines(output, 2)
	want := "Error opening output; Conversion failed!"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := lastOutputLines(nil, 3); got != "" {
		t.Fatalf("expected empty tail for empty output, got %q", got)
	}
}

func setHelperCommand(t *testing.T, mode string, capture func(name string, args []string)) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if capture != nil {
			capture(name, args)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("FFMPEG_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		fmt.Fprintln(os.Stderr, "frame=  240 fps=30 size=1024KiB")
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "Error opening output file")
		fmt.Fprintln(os.Stderr, "Conversion failed!")
		os.Exit(1)
	case "hang":
		select {}
	default:
		os.Exit(0)
	}
}
