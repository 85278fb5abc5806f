package pipeline

import (
	"shrinkbot/internal/media"
	"shrinkbot/internal/telegram"
)

// Outcome is the terminal classification of a job.
type Outcome string

const (
	// OutcomeSuccess means the compressed video was delivered.
	OutcomeSuccess Outcome = "success"
	// OutcomeNoReduction means the encode finished but did not shrink the
	// file; the result was discarded.
	OutcomeNoReduction Outcome = "no_reduction"
	// OutcomeEncodeFailure means ffmpeg exited non-zero or the job failed
	// while processing locally.
	OutcomeEncodeFailure Outcome = "encode_failure"
	// OutcomeDeliveryTimeout means the download or delivery did not
	// complete within the transport's time budget.
	OutcomeDeliveryTimeout Outcome = "delivery_timeout"
	// OutcomeNoInputFound means neither the command message nor its reply
	// target carried a usable video.
	OutcomeNoInputFound Outcome = "no_input_found"
)

// Job tracks one compression request end to end. It is created when the
// compress command arrives and mutated only by the Runner as the pipeline
// advances; the workspace behind it is reclaimed at job end regardless of
// outcome.
type Job struct {
	ID      string
	Command telegram.MessageRef
	Source  media.Source

	WorkspaceDir string
	InputPath    string
	OutputPath   string

	OriginalSize   int64
	CompressedSize int64

	Outcome Outcome
}
