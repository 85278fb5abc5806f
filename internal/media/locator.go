// Package media inspects incoming Telegram messages for transcodable video
// content. Locate implements the resolution order the compress command relies
// on; Inspect backs the debug command. Both are pure inspection with no side
// effects.
package media

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/unicode/norm"
)

// DefaultFileName is used when the source provides no usable filename.
const DefaultFileName = "input.mp4"

const videoMimePrefix = "video/"

// Source identifies the located asset and the message that carries it.
// Delivery replies to MessageID, which is not necessarily the command message.
type Source struct {
	FileID    string
	FileName  string
	ChatID    int64
	MessageID int
}

// Locate resolves the asset for a compress request. The request message is
// checked first (attached video, then a document with a video MIME type); if
// it holds nothing usable the same checks run against the replied-to message.
// The boolean is false when neither message yields an asset.
func Locate(request, replied *tgbotapi.Message) (Source, bool) {
	if src, ok := fromMessage(request); ok {
		return src, true
	}
	if src, ok := fromMessage(replied); ok {
		return src, true
	}
	return Source{}, false
}

func fromMessage(msg *tgbotapi.Message) (Source, bool) {
	if msg == nil || msg.Chat == nil {
		return Source{}, false
	}
	if msg.Video != nil {
		return Source{
			FileID:    msg.Video.FileID,
			FileName:  normalizeFileName(msg.Video.FileName),
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
		}, true
	}
	if doc := msg.Document; doc != nil && strings.HasPrefix(doc.MimeType, videoMimePrefix) {
		return Source{
			FileID:    doc.FileID,
			FileName:  normalizeFileName(doc.FileName),
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
		}, true
	}
	return Source{}, false
}

// normalizeFileName makes a Telegram-supplied filename safe to create inside
// the workspace. Path components and control characters are stripped; an
// unusable result falls back to DefaultFileName.
func normalizeFileName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name = strings.TrimSpace(b.String())
	if name == "" || name == "." || name == ".." {
		return DefaultFileName
	}
	return name
}
