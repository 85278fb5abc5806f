package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shrinkbot/internal/config"
	"shrinkbot/internal/logging"
	"shrinkbot/internal/services"
)

// MessageRef identifies a message the bot previously sent or observed.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Messenger is the chat surface the pipeline and notifier depend on.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (MessageRef, error)
	ReplyMessage(ctx context.Context, chatID int64, replyTo int, text string) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendVideoReply(ctx context.Context, chatID int64, replyTo int, path, caption string) (MessageRef, error)
	Download(ctx context.Context, fileID, destPath string) (int64, error)
}

// Option configures the client.
type Option func(*settings)

type settings struct {
	apiEndpoint  string
	fileEndpoint string
}

// WithEndpoints points the client at a different Bot API server, such as
// a self-hosted instance.
func WithEndpoints(api, file string) Option {
	return func(s *settings) {
		if strings.TrimSpace(api) != "" {
			s.apiEndpoint = api
		}
		if strings.TrimSpace(file) != "" {
			s.fileEndpoint = file
		}
	}
}

// Client talks to the Bot API. Control calls run under an overall request
// deadline derived from the configured timeouts; file downloads stream on
// a separate client bounded only by the caller's context and the
// transport timeouts.
type Client struct {
	api          *tgbotapi.BotAPI
	token        string
	media        *http.Client
	fileEndpoint string
	logger       *slog.Logger
}

// New resolves the bot token and authorizes against the Bot API.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "create client", "configuration unavailable", nil)
	}
	token, err := cfg.ResolveToken()
	if err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"telegram",
			"resolve token",
			"Bot token unavailable; set BOT_TOKEN or configure token_file",
			err,
		)
	}

	s := settings{apiEndpoint: tgbotapi.APIEndpoint, fileEndpoint: tgbotapi.FileEndpoint}
	for _, opt := range opts {
		opt(&s)
	}

	transport := newTransport(cfg.Telegram)
	control := &http.Client{Timeout: controlDeadline(cfg.Telegram), Transport: transport}
	api, err := tgbotapi.NewBotAPIWithClient(token, s.apiEndpoint, control)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient,
			"telegram",
			"authorize bot",
			"Bot API authorization failed; verify the token and network access",
			err,
		)
	}

	return &Client{
		api:          api,
		token:        token,
		media:        &http.Client{Transport: transport},
		fileEndpoint: s.fileEndpoint,
		logger:       logging.NewComponentLogger(logger, "telegram"),
	}, nil
}

// newTransport maps the configured timeouts onto the HTTP transport:
// connect bounds dialing and the TLS handshake, read bounds waiting for
// response headers, pool bounds idle connection reuse.
func newTransport(tc config.Telegram) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   seconds(tc.ConnectTimeout),
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   seconds(tc.ConnectTimeout),
		ResponseHeaderTimeout: seconds(tc.ReadTimeout),
		IdleConnTimeout:       seconds(tc.PoolTimeout),
	}
}

// controlDeadline is the end-to-end budget for a single control call,
// including the upload phase of a video delivery.
func controlDeadline(tc config.Telegram) time.Duration {
	return seconds(tc.ConnectTimeout + tc.ReadTimeout + tc.WriteTimeout)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// BotName reports the authorized account's username.
func (c *Client) BotName() string {
	return c.api.Self.UserName
}

// Updates opens the long-poll update stream.
func (c *Client) Updates(timeoutSeconds int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	return c.api.GetUpdatesChan(u)
}

// Stop closes the update stream and lets in-flight polls drain.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

// SendMessage posts text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (MessageRef, error) {
	return c.send(ctx, "send message", tgbotapi.NewMessage(chatID, text))
}

// ReplyMessage posts text as a reply to an existing message.
func (c *Client) ReplyMessage(ctx context.Context, chatID int64, replyTo int, text string) (MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	return c.send(ctx, "reply message", msg)
}

// EditMessage replaces the text of a message the bot sent earlier.
func (c *Client) EditMessage(ctx context.Context, ref MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrTransient, "telegram", "edit message", "request canceled", err)
	}
	if _, err := c.api.Request(tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)); err != nil {
		return wrapAPIError("edit message", err)
	}
	return nil
}

// DeleteMessage removes a message from the chat.
func (c *Client) DeleteMessage(ctx context.Context, ref MessageRef) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrTransient, "telegram", "delete message", "request canceled", err)
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return wrapAPIError("delete message", err)
	}
	return nil
}

// SendVideoReply uploads the file at path as a video reply with the given
// caption.
func (c *Client) SendVideoReply(ctx context.Context, chatID int64, replyTo int, path, caption string) (MessageRef, error) {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	video.ReplyToMessageID = replyTo
	return c.send(ctx, "send video", video)
}

// Download resolves fileID through the Bot API and streams its content to
// destPath, returning the number of bytes written.
func (c *Client) Download(ctx context.Context, fileID, destPath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, services.Wrap(services.ErrTransient, "telegram", "download file", "request canceled", err)
	}
	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return 0, wrapAPIError("resolve file", err)
	}

	link := fmt.Sprintf(c.fileEndpoint, c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "telegram", "download file", "failed to build download request", err)
	}
	resp, err := c.media.Do(req)
	if err != nil {
		return 0, wrapAPIError("download file", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, services.Wrap(
			services.ErrTransient,
			"telegram",
			"download file",
			fmt.Sprintf("file server returned status %d", resp.StatusCode),
			nil,
		)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, services.Wrap(
			services.ErrConfiguration,
			"telegram",
			"download file",
			"Failed to create download destination; check staging_dir permissions",
			err,
		)
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, wrapAPIError("download file", err)
	}

	c.logger.Debug("downloaded file",
		logging.String("file_id", fileID),
		logging.String("path", destPath),
		logging.Int64("bytes", written),
	)
	return written, nil
}

func (c *Client) send(ctx context.Context, operation string, chattable tgbotapi.Chattable) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, services.Wrap(services.ErrTransient, "telegram", operation, "request canceled", err)
	}
	sent, err := c.api.Send(chattable)
	if err != nil {
		return MessageRef{}, wrapAPIError(operation, err)
	}
	ref := MessageRef{MessageID: sent.MessageID}
	if sent.Chat != nil {
		ref.ChatID = sent.Chat.ID
	}
	return ref, nil
}

func wrapAPIError(operation string, err error) error {
	marker := services.ErrTransient
	if isTimeout(err) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, "telegram", operation, "Bot API request failed", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ Messenger = (*Client)(nil)
