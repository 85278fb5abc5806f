// Package bot routes inbound Telegram commands to their handlers.
//
// The router consumes the long-poll update stream and reacts only to
// commands: /start answers with usage text, /compress spawns one pipeline
// job per command, /inspect reports the structure of a replied-to message.
// Everything else is ignored.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"shrinkbot/internal/logging"
	"shrinkbot/internal/media"
	"shrinkbot/internal/notify"
	"shrinkbot/internal/pipeline"
	"shrinkbot/internal/services"
	"shrinkbot/internal/telegram"
)

const inspectHintDelay = 10 * time.Second

const (
	greetingText = "Hi! I'm a video compression bot.\n" +
		"How to use me:\n" +
		"1. Send a video.\n" +
		"2. Reply to that video with /compress.\n" +
		"I'll send back a smaller copy."
	inspectHintText = "Reply to a message with /inspect to see what it contains."
)

// Pipeline runs one compression job for a command message.
type Pipeline interface {
	Run(ctx context.Context, command *tgbotapi.Message) *pipeline.Job
}

// Router dispatches commands from the update stream. Each command runs on
// its own goroutine so a long compress job never blocks the poll loop.
type Router struct {
	messenger telegram.Messenger
	notifier  notify.Service
	pipeline  Pipeline
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewRouter wires a command router.
func NewRouter(messenger telegram.Messenger, notifier notify.Service, p Pipeline, logger *slog.Logger) *Router {
	return &Router{
		messenger: messenger,
		notifier:  notifier,
		pipeline:  p,
		logger:    logging.NewComponentLogger(logger, "bot"),
	}
}

// Run consumes updates until ctx is canceled or the stream closes, then
// waits for in-flight handlers to finish.
func (r *Router) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer r.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("update loop stopping")
			return
		case update, ok := <-updates:
			if !ok {
				r.logger.Info("update stream closed")
				return
			}
			r.Dispatch(ctx, update)
		}
	}
}

// Dispatch routes a single update. Non-message updates and non-command
// messages are dropped; the bot only ever reacts to commands.
func (r *Router) Dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)
	command := msg.Command()
	logger.Debug("dispatching command",
		logging.String("command", command),
		logging.Int64(logging.FieldChatID, chatID(msg)),
		logging.Int(logging.FieldMessageID, msg.MessageID),
	)

	switch command {
	case "start":
		r.spawn(func() { r.handleStart(ctx, logger, msg) })
	case "compress":
		r.spawn(func() { r.handleCompress(ctx, msg) })
	case "inspect":
		r.spawn(func() { r.handleInspect(ctx, logger, msg) })
	default:
		logger.Debug("ignoring unknown command", logging.String("command", command))
	}
}

func (r *Router) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Router) handleStart(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) {
	if _, err := r.messenger.ReplyMessage(ctx, chatID(msg), msg.MessageID, greetingText); err != nil {
		logger.Warn("failed to send greeting", logging.Error(err))
	}
}

func (r *Router) handleCompress(ctx context.Context, msg *tgbotapi.Message) {
	r.pipeline.Run(ctx, msg)
}

func (r *Router) handleInspect(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		r.notifier.PostEphemeral(ctx, chatID(msg), msg.MessageID, inspectHintText, inspectHintDelay)
		return
	}
	report := media.Inspect(msg.ReplyToMessage)
	if _, err := r.messenger.ReplyMessage(ctx, chatID(msg), msg.MessageID, formatReport(report)); err != nil {
		logger.Warn("failed to send inspect report", logging.Error(err))
	}
}

// formatReport renders the probe result as aligned key/value lines.
func formatReport(report media.Report) string {
	rows := []struct {
		key   string
		value string
	}{
		{"video", yesNo(report.HasVideo)},
		{"document", yesNo(report.HasDocument)},
		{"animation", yesNo(report.HasAnimation)},
		{"photo", yesNo(report.HasPhoto)},
		{"caption", yesNo(report.HasCaption)},
		{"mime_type", orDash(report.MimeType)},
		{"file_name", orDash(report.FileName)},
	}
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%-10s %s\n", row.key+":", row.value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func chatID(msg *tgbotapi.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}
