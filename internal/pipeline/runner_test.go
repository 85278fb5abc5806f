package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shrinkbot/internal/encode"
	"shrinkbot/internal/logging"
	"shrinkbot/internal/notify"
	"shrinkbot/internal/pipeline"
	"shrinkbot/internal/services"
	"shrinkbot/internal/telegram"
)

const mb = 1024 * 1024

type post struct {
	Text    string
	ReplyTo int
	Delay   time.Duration
	Timed   bool
}

// recordingNotifier captures every notifier interaction so tests can assert
// on message lifetimes without waiting out real timers.
type recordingNotifier struct {
	mu        sync.Mutex
	nextID    int
	posts     []post
	scheduled map[notify.Handle]time.Duration
	deleted   []telegram.MessageRef
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		scheduled: make(map[notify.Handle]time.Duration),
	}
}

func (n *recordingNotifier) Post(_ context.Context, chatID int64, replyTo int, text string) notify.Handle {
	return n.record(chatID, replyTo, text, 0, false)
}

func (n *recordingNotifier) PostEphemeral(_ context.Context, chatID int64, replyTo int, text string, delay time.Duration) notify.Handle {
	return n.record(chatID, replyTo, text, delay, true)
}

func (n *recordingNotifier) record(chatID int64, replyTo int, text string, delay time.Duration, timed bool) notify.Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	h := notify.Track(telegram.MessageRef{ChatID: chatID, MessageID: 1000 + n.nextID})
	n.posts = append(n.posts, post{Text: text, ReplyTo: replyTo, Delay: delay, Timed: timed})
	if timed {
		n.scheduled[h] = delay
	}
	return h
}

func (n *recordingNotifier) ScheduleDelete(h notify.Handle, delay time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled[h] = delay
}

// DeleteNow records every real deletion, including handles the pipeline
// builds itself by tracking the command message.
func (n *recordingNotifier) DeleteNow(_ context.Context, h notify.Handle) {
	if !h.Posted() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, h.Ref())
}

func (n *recordingNotifier) Wait() {}

func (n *recordingNotifier) postedTexts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	texts := make([]string, 0, len(n.posts))
	for _, p := range n.posts {
		texts = append(texts, p.Text)
	}
	return texts
}

func (n *recordingNotifier) timedPosts() []post {
	n.mu.Lock()
	defer n.mu.Unlock()
	var timed []post
	for _, p := range n.posts {
		if p.Timed {
			timed = append(timed, p)
		}
	}
	return timed
}

func (n *recordingNotifier) deletedRefs() []telegram.MessageRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]telegram.MessageRef(nil), n.deleted...)
}

func (n *recordingNotifier) scheduledDelays() []time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	delays := make([]time.Duration, 0, len(n.scheduled))
	for _, d := range n.scheduled {
		delays = append(delays, d)
	}
	return delays
}

type delivery struct {
	ChatID  int64
	ReplyTo int
	Path    string
	Caption string
}

// pipeMessenger serves downloads from a configured size and records video
// deliveries.
type pipeMessenger struct {
	mu           sync.Mutex
	downloadSize int64
	downloadErr  error
	deliverErr   error
	deliveries   []delivery
}

func (m *pipeMessenger) SendMessage(_ context.Context, chatID int64, _ string) (telegram.MessageRef, error) {
	return telegram.MessageRef{ChatID: chatID, MessageID: 1}, nil
}

func (m *pipeMessenger) ReplyMessage(_ context.Context, chatID int64, _ int, _ string) (telegram.MessageRef, error) {
	return telegram.MessageRef{ChatID: chatID, MessageID: 1}, nil
}

func (m *pipeMessenger) EditMessage(context.Context, telegram.MessageRef, string) error { return nil }

func (m *pipeMessenger) DeleteMessage(context.Context, telegram.MessageRef) error { return nil }

func (m *pipeMessenger) SendVideoReply(_ context.Context, chatID int64, replyTo int, path, caption string) (telegram.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliverErr != nil {
		return telegram.MessageRef{}, m.deliverErr
	}
	m.deliveries = append(m.deliveries, delivery{ChatID: chatID, ReplyTo: replyTo, Path: path, Caption: caption})
	return telegram.MessageRef{ChatID: chatID, MessageID: 2000}, nil
}

func (m *pipeMessenger) Download(_ context.Context, _ string, destPath string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downloadErr != nil {
		return 0, m.downloadErr
	}
	if err := writeSized(destPath, m.downloadSize); err != nil {
		return 0, err
	}
	return m.downloadSize, nil
}

func (m *pipeMessenger) delivered() []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]delivery(nil), m.deliveries...)
}

// sizedEncoder writes an output file of the configured size, or fails.
type sizedEncoder struct {
	outputSize int64
	err        error
	calls      int
}

func (e *sizedEncoder) Encode(_ context.Context, req encode.Request) error {
	e.calls++
	if e.err != nil {
		return e.err
	}
	return writeSized(req.OutputPath, e.outputSize)
}

func writeSized(path string, size int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			return err
		}
	}
	return nil
}

func videoMessage(chatID int64, messageID int, fileName string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: messageID,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Video:     &tgbotapi.Video{FileID: "file-" + fileName, FileName: fileName},
	}
}

func compressCommand(chatID int64, messageID int, reply *tgbotapi.Message) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID:      messageID,
		Chat:           &tgbotapi.Chat{ID: chatID},
		Text:           "/compress",
		ReplyToMessage: reply,
	}
}

func newRunner(t *testing.T, messenger telegram.Messenger, notifier notify.Service, encoder pipeline.Encoder) (*pipeline.Runner, string) {
	t.Helper()
	staging := t.TempDir()
	return pipeline.NewRunner(messenger, notifier, encoder, staging, logging.NewNop()), staging
}

func requireEmptyStaging(t *testing.T, staging string) {
	t.Helper()
	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected staging dir to be empty after the job, found %d entries", len(entries))
	}
}

func TestRunDeliversCompressedVideoToSourceMessage(t *testing.T) {
	messenger := &pipeMessenger{downloadSize: 5 * mb}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{outputSize: 2 * mb}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	source := videoMessage(7, 11, "clip.mp4")
	job := runner.Run(context.Background(), compressCommand(7, 12, source))

	if job.Outcome != pipeline.OutcomeSuccess {
		t.Fatalf("expected success, got %s", job.Outcome)
	}
	deliveries := messenger.delivered()
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	if deliveries[0].ReplyTo != 11 {
		t.Fatalf("expected delivery as reply to the source message 11, got %d", deliveries[0].ReplyTo)
	}
	if !strings.Contains(deliveries[0].Caption, "Original: 5.00 MB") ||
		!strings.Contains(deliveries[0].Caption, "Compressed: 2.00 MB") {
		t.Fatalf("unexpected caption: %q", deliveries[0].Caption)
	}

	texts := notifier.postedTexts()
	if len(texts) != 1 || !strings.Contains(texts[0], "compressing") {
		t.Fatalf("expected a single processing status message, got %v", texts)
	}
	// Cleanup removes the status message and the command message.
	deleted := notifier.deletedRefs()
	if len(deleted) != 2 {
		t.Fatalf("expected 2 cleanup deletions, got %d", len(deleted))
	}
	var sawCommand bool
	for _, ref := range deleted {
		if ref.ChatID == 7 && ref.MessageID == 12 {
			sawCommand = true
		}
	}
	if !sawCommand {
		t.Fatalf("expected the command message among the cleanup deletions, got %+v", deleted)
	}
	requireEmptyStaging(t, staging)
}

func TestRunPostsOversizeAdvisoryAndStillDelivers(t *testing.T) {
	messenger := &pipeMessenger{downloadSize: 50 * mb}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{outputSize: 46 * mb}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	job := runner.Run(context.Background(), compressCommand(7, 12, videoMessage(7, 11, "big.mp4")))

	if job.Outcome != pipeline.OutcomeSuccess {
		t.Fatalf("expected success, got %s", job.Outcome)
	}
	if len(messenger.delivered()) != 1 {
		t.Fatal("expected delivery despite the oversize advisory")
	}

	var sawAdvisory bool
	for _, text := range notifier.postedTexts() {
		if strings.Contains(text, "delivery may time out") {
			sawAdvisory = true
		}
	}
	if !sawAdvisory {
		t.Fatalf("expected oversize advisory, got %v", notifier.postedTexts())
	}
	// Status, command, and advisory are all removed during cleanup.
	if deleted := notifier.deletedRefs(); len(deleted) != 3 {
		t.Fatalf("expected 3 cleanup deletions, got %d", len(deleted))
	}
	requireEmptyStaging(t, staging)
}

func TestRunDiscardsResultWhenNotSmaller(t *testing.T) {
	messenger := &pipeMessenger{downloadSize: 1 * mb}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{outputSize: 1*mb + 512}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	job := runner.Run(context.Background(), compressCommand(7, 12, videoMessage(7, 11, "tiny.mp4")))

	if job.Outcome != pipeline.OutcomeNoReduction {
		t.Fatalf("expected no-reduction, got %s", job.Outcome)
	}
	if len(messenger.delivered()) != 0 {
		t.Fatal("no delivery may happen when the encode did not shrink the file")
	}

	timed := notifier.timedPosts()
	if len(timed) != 1 || !strings.Contains(timed[0].Text, "smaller") {
		t.Fatalf("expected a single no-reduction explanation, got %+v", timed)
	}
	if timed[0].Delay != 10*time.Second {
		t.Fatalf("expected the explanation to self-delete after 10s, got %s", timed[0].Delay)
	}
	requireEmptyStaging(t, staging)
}

func TestRunDiscardsResultWhenSizesEqual(t *testing.T) {
	messenger := &pipeMessenger{downloadSize: 2 * mb}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{outputSize: 2 * mb}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	job := runner.Run(context.Background(), compressCommand(7, 12, videoMessage(7, 11, "even.mp4")))

	if job.Outcome != pipeline.OutcomeNoReduction {
		t.Fatalf("expected no-reduction for an equal-size result, got %s", job.Outcome)
	}
	if len(messenger.delivered()) != 0 {
		t.Fatal("no delivery may happen when the result is not strictly smaller")
	}
	requireEmptyStaging(t, staging)
}

func TestRunWithoutVideoPostsUsageHelpAndSkipsWorkspace(t *testing.T) {
	messenger := &pipeMessenger{}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	job := runner.Run(context.Background(), compressCommand(7, 12, nil))

	if job.Outcome != pipeline.OutcomeNoInputFound {
		t.Fatalf("expected no-input outcome, got %s", job.Outcome)
	}
	if encoder.calls != 0 {
		t.Fatal("encoder must not run without an input")
	}

	timed := notifier.timedPosts()
	if len(timed) != 1 || !strings.Contains(timed[0].Text, "/compress") {
		t.Fatalf("expected the usage help message, got %+v", timed)
	}
	// Both the help message and the command message are scheduled for the
	// same delayed deletion.
	delays := notifier.scheduledDelays()
	if len(delays) != 2 {
		t.Fatalf("expected 2 scheduled deletions, got %d", len(delays))
	}
	for _, d := range delays {
		if d != 10*time.Second {
			t.Fatalf("expected 10s deletion delay, got %s", d)
		}
	}
	requireEmptyStaging(t, staging)
}

func TestRunReportsEncodeFailureOnce(t *testing.T) {
	messenger := &pipeMessenger{downloadSize: 3 * mb}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{
		err: services.Wrap(services.ErrExternalTool, "encode", "run ffmpeg", "exit status 1", errors.New("exit status 1")),
	}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	job := runner.Run(context.Background(), compressCommand(7, 12, videoMessage(7, 11, "broken.mp4")))

	if job.Outcome != pipeline.OutcomeEncodeFailure {
		t.Fatalf("expected encode failure, got %s", job.Outcome)
	}
	if len(messenger.delivered()) != 0 {
		t.Fatal("no delivery may happen after an encode failure")
	}

	timed := notifier.timedPosts()
	if len(timed) != 1 {
		t.Fatalf("expected exactly one failure notice, got %+v", timed)
	}
	requireEmptyStaging(t, staging)
}

func TestRunClassifiesDeliveryTimeout(t *testing.T) {
	messenger := &pipeMessenger{
		downloadSize: 4 * mb,
		deliverErr:   services.Wrap(services.ErrTimeout, "telegram", "send video", "request timed out", context.DeadlineExceeded),
	}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{outputSize: 1 * mb}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	job := runner.Run(context.Background(), compressCommand(7, 12, videoMessage(7, 11, "slow.mp4")))

	if job.Outcome != pipeline.OutcomeDeliveryTimeout {
		t.Fatalf("expected delivery timeout, got %s", job.Outcome)
	}
	timed := notifier.timedPosts()
	if len(timed) != 1 || !strings.Contains(timed[0].Text, "took too long") {
		t.Fatalf("expected a retry advisory, got %+v", timed)
	}
	if timed[0].Delay != 10*time.Second {
		t.Fatalf("expected 10s advisory lifetime, got %s", timed[0].Delay)
	}
	requireEmptyStaging(t, staging)
}

func TestRunCleansWorkspaceAfterDownloadFailure(t *testing.T) {
	messenger := &pipeMessenger{
		downloadErr: services.Wrap(services.ErrTransient, "telegram", "download file", "connection reset", errors.New("connection reset")),
	}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{}
	runner, staging := newRunner(t, messenger, notifier, encoder)

	job := runner.Run(context.Background(), compressCommand(7, 12, videoMessage(7, 11, "gone.mp4")))

	if job.Outcome != pipeline.OutcomeDeliveryTimeout {
		t.Fatalf("expected transport failure classification, got %s", job.Outcome)
	}
	if encoder.calls != 0 {
		t.Fatal("encoder must not run when the download failed")
	}
	requireEmptyStaging(t, staging)
}

func TestRunUsesDefaultFileNameInWorkspacePaths(t *testing.T) {
	messenger := &pipeMessenger{downloadSize: 2 * mb}
	notifier := newRecordingNotifier()
	encoder := &sizedEncoder{outputSize: 1 * mb}
	runner, _ := newRunner(t, messenger, notifier, encoder)

	source := videoMessage(7, 11, "")
	job := runner.Run(context.Background(), compressCommand(7, 12, source))

	if job.Outcome != pipeline.OutcomeSuccess {
		t.Fatalf("expected success, got %s", job.Outcome)
	}
	if filepath.Base(job.InputPath) != "input.mp4" {
		t.Fatalf("expected the default input filename, got %s", job.InputPath)
	}
	if filepath.Base(job.OutputPath) != "compressed_input.mp4" {
		t.Fatalf("expected the prefixed output filename, got %s", job.OutputPath)
	}
}
