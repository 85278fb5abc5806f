package notify

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"shrinkbot/internal/logging"
	"shrinkbot/internal/telegram"
)

// How long the shutdown sweep is given to delete a notice whose timer had
// not fired when the base context ended.
const shutdownSweepTimeout = 5 * time.Second

// Handle identifies a chat message owned by the notifier. The zero value
// is inert: deleting it is a no-op.
type Handle struct {
	state *handleState
}

type handleState struct {
	ref  telegram.MessageRef
	once sync.Once
	done chan struct{}
}

func newHandle(ref telegram.MessageRef) Handle {
	return Handle{state: &handleState{ref: ref, done: make(chan struct{})}}
}

// Posted reports whether the handle refers to an actual chat message.
func (h Handle) Posted() bool {
	return h.state != nil
}

// Ref returns the chat message behind the handle. Inert handles return
// the zero ref.
func (h Handle) Ref() telegram.MessageRef {
	if h.state == nil {
		return telegram.MessageRef{}
	}
	return h.state.ref
}

// Track wraps a message the bot did not post, such as the user's command
// message, so it can be deleted through the same swallow-on-failure path.
func Track(ref telegram.MessageRef) Handle {
	return newHandle(ref)
}

// Service is the notifier surface the pipeline depends on.
type Service interface {
	Post(ctx context.Context, chatID int64, replyTo int, text string) Handle
	PostEphemeral(ctx context.Context, chatID int64, replyTo int, text string, delay time.Duration) Handle
	ScheduleDelete(h Handle, delay time.Duration)
	DeleteNow(ctx context.Context, h Handle)
	Wait()
}

// Notifier posts and deletes status messages through a Messenger. The
// base context bounds the deferred deletion timers: when it ends, pending
// timers fire one final deletion attempt instead of waiting out their
// delay.
type Notifier struct {
	messenger telegram.Messenger
	base      context.Context
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewService builds a notifier bound to the given lifecycle context.
func NewService(base context.Context, messenger telegram.Messenger, logger *slog.Logger) *Notifier {
	if base == nil {
		base = context.Background()
	}
	return &Notifier{
		messenger: messenger,
		base:      base,
		logger:    logging.NewComponentLogger(logger, "notifier"),
	}
}

// Post sends a status message with no scheduled deletion; the caller owns
// deleting it through DeleteNow or ScheduleDelete. Posting failures are
// logged and yield an inert handle.
func (n *Notifier) Post(ctx context.Context, chatID int64, replyTo int, text string) Handle {
	ref, err := n.messenger.ReplyMessage(ctx, chatID, replyTo, text)
	if err != nil {
		n.logger.Warn("failed to post status message",
			logging.Int64(logging.FieldChatID, chatID),
			logging.Error(err),
		)
		return Handle{}
	}
	return newHandle(ref)
}

// PostEphemeral sends a message that deletes itself after delay.
func (n *Notifier) PostEphemeral(ctx context.Context, chatID int64, replyTo int, text string, delay time.Duration) Handle {
	h := n.Post(ctx, chatID, replyTo, text)
	n.ScheduleDelete(h, delay)
	return h
}

// ScheduleDelete arranges for h to be deleted after delay without
// blocking the caller. The timer releases early when the handle is
// deleted through DeleteNow or when the base context ends, in which case
// one final deletion attempt is made before the notifier drains.
func (n *Notifier) ScheduleDelete(h Handle, delay time.Duration) {
	if h.state == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			n.DeleteNow(n.base, h)
		case <-h.state.done:
		case <-n.base.Done():
			sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(n.base), shutdownSweepTimeout)
			defer cancel()
			n.DeleteNow(sweepCtx, h)
		}
	}()
}

// DeleteNow removes the message behind h. Each handle is deleted at most
// once; repeated calls and calls on inert handles are no-ops, and API
// failures are logged, never returned.
func (n *Notifier) DeleteNow(ctx context.Context, h Handle) {
	if h.state == nil {
		return
	}
	h.state.once.Do(func() {
		defer close(h.state.done)
		if err := n.messenger.DeleteMessage(ctx, h.state.ref); err != nil {
			n.logger.Warn("failed to delete chat message",
				logging.Int64(logging.FieldChatID, h.state.ref.ChatID),
				logging.Int(logging.FieldMessageID, h.state.ref.MessageID),
				logging.Error(err),
			)
			return
		}
		n.logger.Debug("deleted chat message",
			logging.Int64(logging.FieldChatID, h.state.ref.ChatID),
			logging.Int(logging.FieldMessageID, h.state.ref.MessageID),
		)
	})
}

// Wait blocks until every scheduled deletion has run or been released.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

var _ Service = (*Notifier)(nil)

// Noop returns a notifier that posts nothing and deletes nothing.
func Noop() Service {
	return noopService{}
}

type noopService struct{}

func (noopService) Post(context.Context, int64, int, string) Handle { return Handle{} }
func (noopService) PostEphemeral(context.Context, int64, int, string, time.Duration) Handle {
	return Handle{}
}
func (noopService) ScheduleDelete(Handle, time.Duration) {}
func (noopService) DeleteNow(context.Context, Handle)    {}
func (noopService) Wait()                                {}
