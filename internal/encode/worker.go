package encode

import (
	"context"
	"sync"

	"log/slog"

	"shrinkbot/internal/logging"
	"shrinkbot/internal/services"
)

// Worker feeds transcodes to a single goroutine so concurrent chat
// commands queue behind one another instead of running ffmpeg in
// parallel.
type Worker struct {
	transcoder Transcoder
	logger     *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	jobs    chan workerJob
	done    chan struct{}
}

type workerJob struct {
	ctx    context.Context
	req    Request
	result chan error
}

// NewWorker wires a worker around the given transcoder.
func NewWorker(transcoder Transcoder, logger *slog.Logger) *Worker {
	return &Worker{
		transcoder: transcoder,
		logger:     logging.NewComponentLogger(logger, "encode-worker"),
	}
}

// Start launches the worker loop. The loop stops when Stop is called or
// ctx is canceled; either also aborts an in-flight transcode.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return services.Wrap(services.ErrConfiguration, "encode", "start worker", "Encode worker already running", nil)
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.jobs = make(chan workerJob)
	w.done = make(chan struct{})
	w.started = true
	go w.run(runCtx)
	w.logger.Debug("encode worker started")
	return nil
}

// Stop cancels the worker loop and waits for it to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	started := w.started
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-done
	w.logger.Debug("encode worker stopped")
}

// Encode submits a request and blocks until the transcode finishes. The
// request runs under ctx, so canceling it aborts both a queued and an
// in-flight job.
func (w *Worker) Encode(ctx context.Context, req Request) error {
	w.mu.Lock()
	started := w.started
	jobs := w.jobs
	done := w.done
	w.mu.Unlock()
	if !started {
		return services.Wrap(services.ErrConfiguration, "encode", "submit job", "Encode worker is not running", nil)
	}

	job := workerJob{ctx: ctx, req: req, result: make(chan error, 1)}
	select {
	case jobs <- job:
	case <-ctx.Done():
		return services.Wrap(
			services.ErrTransient,
			"encode",
			"submit job",
			"Transcode canceled while waiting for the encode slot",
			ctx.Err(),
		)
	case <-done:
		return services.Wrap(services.ErrTransient, "encode", "submit job", "Encode worker stopped before the job could start", nil)
	}
	return <-job.result
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			jobCtx, cancel := context.WithCancel(job.ctx)
			release := context.AfterFunc(ctx, cancel)
			err := w.transcoder.Run(jobCtx, job.req)
			release()
			cancel()
			job.result <- err
		}
	}
}
