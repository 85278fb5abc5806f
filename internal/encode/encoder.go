package encode

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"shrinkbot/internal/logging"
	"shrinkbot/internal/services"
)

var commandContext = exec.CommandContext

// Output parameters shared by every transcode. The video scales to 720
// lines with the width following the source aspect ratio, H.264 at a
// constant rate factor tuned for size over speed, audio re-encoded to AAC.
const (
	targetHeight = 720
	videoCodec   = "libx264"
	rateFactor   = 29
	speedPreset  = "slow"
	audioCodec   = "aac"
)

const errorTailLines = 5

// Request describes a single transcode.
type Request struct {
	InputPath  string
	OutputPath string
}

// Args returns the complete ffmpeg argument list for the request.
func (r Request) Args() []string {
	return []string{
		"-y",
		"-i", r.InputPath,
		"-vf", "scale=-2:" + strconv.Itoa(targetHeight),
		"-c:v", videoCodec,
		"-crf", strconv.Itoa(rateFactor),
		"-preset", speedPreset,
		"-c:a", audioCodec,
		r.OutputPath,
	}
}

// Transcoder runs a single transcode request to completion.
type Transcoder interface {
	Run(ctx context.Context, req Request) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(binary) != "" {
			r.binary = binary
		}
	}
}

// Runner executes ffmpeg transcodes.
type Runner struct {
	binary string
	logger *slog.Logger
}

// NewRunner constructs a Runner using defaults.
func NewRunner(logger *slog.Logger, opts ...Option) *Runner {
	runner := &Runner{
		binary: "ffmpeg",
		logger: logging.NewComponentLogger(logger, "encoder"),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run launches ffmpeg and blocks until the transcode finishes. ffmpeg
// output is captured and surfaces in the returned error on failure.
func (r *Runner) Run(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return services.Wrap(services.ErrValidation, "encode", "validate request", "input path required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "encode", "validate request", "output path required", nil)
	}

	args := req.Args()
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("launching ffmpeg",
		logging.String("command", r.binary+" "+strings.Join(args, " ")),
		logging.String("input", req.InputPath),
		logging.String("output", req.OutputPath),
	)

	start := time.Now()
	cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(
				services.ErrTransient,
				"encode",
				"run ffmpeg",
				"Transcode aborted before completion",
				ctx.Err(),
			)
		}
		detail := "ffmpeg exited with an error"
		if tail := lastOutputLines(output, errorTailLines); tail != "" {
			detail = fmt.Sprintf("ffmpeg exited with an error: %s", tail)
		}
		return services.Wrap(services.ErrExternalTool, "encode", "run ffmpeg", detail, err)
	}

	if trimmed := strings.TrimSpace(string(output)); trimmed != "" {
		logger.Debug("ffmpeg output", logging.String("output", trimmed))
	}
	logger.Info("ffmpeg finished",
		logging.String("output", req.OutputPath),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// lastOutputLines keeps the final non-empty lines of process output, where
// ffmpeg reports the actual failure reason.
func lastOutputLines(output []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		kept = append([]string{line}, kept...)
	}
	return strings.Join(kept, "; ")
}

var _ Transcoder = (*Runner)(nil)
