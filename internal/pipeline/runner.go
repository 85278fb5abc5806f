package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"shrinkbot/internal/encode"
	"shrinkbot/internal/fileutil"
	"shrinkbot/internal/logging"
	"shrinkbot/internal/media"
	"shrinkbot/internal/notify"
	"shrinkbot/internal/services"
	"shrinkbot/internal/telegram"
	"shrinkbot/internal/workspace"
)

// Results larger than this many megabytes risk tripping Telegram's upload
// limits; delivery is still attempted, with an advisory posted first.
const oversizeThresholdMB = 45

// ephemeralDelay is how long user-facing advisories stay in the chat.
const ephemeralDelay = 10 * time.Second

const (
	stageResolve  = "resolve"
	stageDownload = "download"
	stageEncode   = "encode"
	stageEvaluate = "evaluate"
	stageDeliver  = "deliver"
	stageCleanup  = "cleanup"
)

const (
	usageHelpText = "To use /compress, either attach a video to the command message " +
		"or reply to a message that contains one."
	processingText      = "Got the video, compressing it now..."
	downloadFailedText  = "Couldn't fetch the video from Telegram. Please try again."
	encodeFailedText    = "Something went wrong while compressing the video."
	noReductionText     = "Compression did not make the video any smaller, so I'm not sending it back."
	deliveryTimeoutText = "Sending the compressed video took too long. Please try /compress again."
	deliveryFailedText  = "Couldn't send the compressed video. Please try /compress again."
)

var oversizeNoticeText = fmt.Sprintf(
	"Heads up: the compressed file is still over %d MB, so delivery may time out.",
	oversizeThresholdMB,
)

// Encoder runs one transcode to completion. The encode worker satisfies it.
type Encoder interface {
	Encode(ctx context.Context, req encode.Request) error
}

// Runner executes compression jobs.
type Runner struct {
	messenger  telegram.Messenger
	notifier   notify.Service
	encoder    Encoder
	stagingDir string
	logger     *slog.Logger
}

// NewRunner wires a pipeline runner.
func NewRunner(messenger telegram.Messenger, notifier notify.Service, encoder Encoder, stagingDir string, logger *slog.Logger) *Runner {
	return &Runner{
		messenger:  messenger,
		notifier:   notifier,
		encoder:    encoder,
		stagingDir: stagingDir,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run drives one job for the given compress command message and returns the
// finished job. Every terminal outcome posts exactly one explanatory chat
// message; transient housekeeping failures never surface to the user.
func (r *Runner) Run(ctx context.Context, command *tgbotapi.Message) *Job {
	job := &Job{ID: uuid.NewString(), Outcome: OutcomeNoInputFound}
	if command == nil {
		return job
	}
	job.Command = telegram.MessageRef{MessageID: command.MessageID}
	if command.Chat != nil {
		job.Command.ChatID = command.Chat.ID
	}

	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, r.logger)
	start := time.Now()

	source, ok := r.resolve(logger, command)
	if !ok {
		// Short-circuit: no workspace is created and cleanup is a pair of
		// scheduled deletions rather than the aggregate finish below.
		job.Outcome = OutcomeNoInputFound
		r.notifier.PostEphemeral(ctx, job.Command.ChatID, job.Command.MessageID, usageHelpText, ephemeralDelay)
		r.notifier.ScheduleDelete(notify.Track(job.Command), ephemeralDelay)
		r.logOutcome(logger, job, time.Since(start))
		return job
	}
	job.Source = source

	status := r.notifier.Post(ctx, job.Command.ChatID, job.Command.MessageID, processingText)
	obligations := []notify.Handle{status, notify.Track(job.Command)}
	var ws *workspace.Workspace
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		cleanupCtx = services.WithStage(cleanupCtx, stageCleanup)
		for _, h := range obligations {
			r.notifier.DeleteNow(cleanupCtx, h)
		}
		if err := ws.Remove(); err != nil {
			logger.Warn("failed to remove workspace",
				logging.String(logging.FieldStage, stageCleanup),
				logging.String("path", job.WorkspaceDir),
				logging.Error(err),
			)
		}
		r.logOutcome(logger, job, time.Since(start))
	}()

	ws, err := r.download(ctx, logger, job)
	if err != nil {
		job.Outcome = r.fail(ctx, job, err, downloadFailedText)
		return job
	}

	if err := r.encode(ctx, logger, job); err != nil {
		job.Outcome = r.fail(ctx, job, err, encodeFailedText)
		return job
	}

	deliver, err := r.evaluate(ctx, logger, job, &obligations)
	if err != nil {
		job.Outcome = r.fail(ctx, job, err, encodeFailedText)
		return job
	}
	if !deliver {
		job.Outcome = OutcomeNoReduction
		return job
	}

	if err := r.deliver(ctx, logger, job); err != nil {
		text := deliveryFailedText
		if errors.Is(err, services.ErrTimeout) {
			text = deliveryTimeoutText
		}
		job.Outcome = r.fail(ctx, job, err, text)
		return job
	}

	job.Outcome = OutcomeSuccess
	return job
}

// resolve locates the video on the command message or its reply target.
func (r *Runner) resolve(logger *slog.Logger, command *tgbotapi.Message) (media.Source, bool) {
	logger.Debug("stage started", logging.String(logging.FieldStage, stageResolve))
	source, ok := media.Locate(command, command.ReplyToMessage)
	if !ok {
		logger.Debug("no video found on command or reply target",
			logging.String(logging.FieldStage, stageResolve),
		)
		return media.Source{}, false
	}
	logger.Debug("located source video",
		logging.String(logging.FieldStage, stageResolve),
		logging.String("file_name", source.FileName),
		logging.Int(logging.FieldMessageID, source.MessageID),
	)
	return source, true
}

// download acquires the job workspace and fetches the source into it. The
// returned workspace is non-nil whenever the directory was created, even on
// download failure, so the deferred finish can reclaim it.
func (r *Runner) download(ctx context.Context, logger *slog.Logger, job *Job) (*workspace.Workspace, error) {
	ctx = services.WithStage(ctx, stageDownload)
	logger.Debug("stage started", logging.String(logging.FieldStage, stageDownload))

	ws, err := workspace.Acquire(r.stagingDir, job.ID)
	if err != nil {
		return nil, err
	}
	job.WorkspaceDir = ws.Dir()
	job.InputPath = ws.InputPath(job.Source.FileName)
	job.OutputPath = ws.OutputPath(job.Source.FileName)

	written, err := r.messenger.Download(ctx, job.Source.FileID, job.InputPath)
	if err != nil {
		return ws, err
	}
	logger.Debug("downloaded source video",
		logging.String(logging.FieldStage, stageDownload),
		logging.String("path", job.InputPath),
		logging.Int64("bytes", written),
	)
	return ws, nil
}

func (r *Runner) encode(ctx context.Context, logger *slog.Logger, job *Job) error {
	ctx = services.WithStage(ctx, stageEncode)
	logger.Debug("stage started", logging.String(logging.FieldStage, stageEncode))
	return r.encoder.Encode(ctx, encode.Request{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
	})
}

// evaluate applies the outcome policy to the finished encode. It reports
// whether the result should be delivered; a false return with nil error is
// the no-reduction rejection, which posts its own explanation.
func (r *Runner) evaluate(ctx context.Context, logger *slog.Logger, job *Job, obligations *[]notify.Handle) (bool, error) {
	ctx = services.WithStage(ctx, stageEvaluate)
	logger.Debug("stage started", logging.String(logging.FieldStage, stageEvaluate))

	original, err := fileutil.FileSize(job.InputPath)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, stageEvaluate, "stat input", "downloaded source missing", err)
	}
	compressed, err := fileutil.FileSize(job.OutputPath)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, stageEvaluate, "stat output", "encoder produced no output", err)
	}
	job.OriginalSize = original
	job.CompressedSize = compressed

	logger.Debug("evaluated encode result",
		logging.String(logging.FieldStage, stageEvaluate),
		logging.Float64("original_mb", fileutil.Megabytes(original)),
		logging.Float64("compressed_mb", fileutil.Megabytes(compressed)),
	)

	if compressed >= original {
		r.notifier.PostEphemeral(ctx, job.Command.ChatID, job.Command.MessageID, noReductionText, ephemeralDelay)
		return false, nil
	}

	if fileutil.Megabytes(compressed) > oversizeThresholdMB {
		warning := r.notifier.Post(ctx, job.Command.ChatID, job.Command.MessageID, oversizeNoticeText)
		*obligations = append(*obligations, warning)
		logger.Info("compressed result exceeds the delivery advisory threshold",
			logging.String(logging.FieldStage, stageEvaluate),
			logging.Float64("compressed_mb", fileutil.Megabytes(compressed)),
		)
	}
	return true, nil
}

// deliver sends the compressed file as a reply to the resolved source
// message, which is the replied-to message when the video came from one.
func (r *Runner) deliver(ctx context.Context, logger *slog.Logger, job *Job) error {
	ctx = services.WithStage(ctx, stageDeliver)
	logger.Debug("stage started", logging.String(logging.FieldStage, stageDeliver))
	caption := fmt.Sprintf(
		"Here is the compressed video.\nOriginal: %s\nCompressed: %s",
		fileutil.FormatMegabytes(job.OriginalSize),
		fileutil.FormatMegabytes(job.CompressedSize),
	)
	_, err := r.messenger.SendVideoReply(ctx, job.Source.ChatID, job.Source.MessageID, job.OutputPath, caption)
	return err
}

// fail posts the single user-facing explanation for a terminal error and
// classifies it into an outcome.
func (r *Runner) fail(ctx context.Context, job *Job, err error, text string) Outcome {
	logger := logging.WithContext(ctx, r.logger)
	logger.Warn("job failed", logging.Error(err))
	r.notifier.PostEphemeral(ctx, job.Command.ChatID, job.Command.MessageID, text, ephemeralDelay)
	return classify(err)
}

// classify maps a pipeline error onto the job outcome taxonomy. Transport
// failures (download, delivery) read as delivery timeouts; everything else
// that stops the pipeline counts as an encode failure.
func classify(err error) Outcome {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return OutcomeNoInputFound
	case errors.Is(err, services.ErrTimeout):
		return OutcomeDeliveryTimeout
	case errors.Is(err, services.ErrExternalTool):
		return OutcomeEncodeFailure
	case errors.Is(err, services.ErrTransient):
		return OutcomeDeliveryTimeout
	default:
		return OutcomeEncodeFailure
	}
}

func (r *Runner) logOutcome(logger *slog.Logger, job *Job, elapsed time.Duration) {
	logger.Info("job finished",
		logging.String("outcome", string(job.Outcome)),
		logging.Int64(logging.FieldChatID, job.Command.ChatID),
		logging.Int(logging.FieldMessageID, job.Command.MessageID),
		logging.Int64("original_bytes", job.OriginalSize),
		logging.Int64("compressed_bytes", job.CompressedSize),
		logging.Duration("elapsed", elapsed),
	)
}
