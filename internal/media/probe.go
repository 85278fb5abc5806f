package media

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Report describes the structural metadata of a message as an explicit set of
// optional fields. It backs the inspect command.
type Report struct {
	HasVideo     bool
	HasDocument  bool
	HasAnimation bool
	HasPhoto     bool
	HasCaption   bool
	MimeType     string
	FileName     string
}

// Inspect reports which asset kinds a message carries plus the declared MIME
// type and filename of the most specific one (video, then document, then
// animation).
func Inspect(msg *tgbotapi.Message) Report {
	if msg == nil {
		return Report{}
	}
	report := Report{
		HasVideo:     msg.Video != nil,
		HasDocument:  msg.Document != nil,
		HasAnimation: msg.Animation != nil,
		HasPhoto:     len(msg.Photo) > 0,
		HasCaption:   msg.Caption != "",
	}
	switch {
	case msg.Video != nil:
		report.MimeType = msg.Video.MimeType
		report.FileName = msg.Video.FileName
	case msg.Document != nil:
		report.MimeType = msg.Document.MimeType
		report.FileName = msg.Document.FileName
	case msg.Animation != nil:
		report.MimeType = msg.Animation.MimeType
		report.FileName = msg.Animation.FileName
	}
	return report
}
