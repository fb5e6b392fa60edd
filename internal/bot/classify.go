package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// attachment is the media payload of one incoming message, normalized across
// the five supported kinds.
type attachment struct {
	kind     string
	fileID   string
	uniqueID string
	size     int64
	name     string
}

// classify identifies the media kind of a message, checking document, photo,
// video, audio, voice in that precedence order. Photos use the
// highest-resolution variant. Missing filenames are synthesized from the
// file's unique id.
func classify(msg *tgbotapi.Message) (attachment, bool) {
	switch {
	case msg.Document != nil:
		d := msg.Document
		name := d.FileName
		if name == "" {
			name = fmt.Sprintf("document_%s", d.FileUniqueID)
		}
		return attachment{kind: "document", fileID: d.FileID, uniqueID: d.FileUniqueID, size: int64(d.FileSize), name: name}, true
	case len(msg.Photo) > 0:
		p := pickPhoto(msg.Photo)
		return attachment{
			kind:     "photo",
			fileID:   p.FileID,
			uniqueID: p.FileUniqueID,
			size:     int64(p.FileSize),
			name:     fmt.Sprintf("photo_%s.jpg", p.FileUniqueID),
		}, true
	case msg.Video != nil:
		v := msg.Video
		name := v.FileName
		if name == "" {
			name = fmt.Sprintf("video_%s.mp4", v.FileUniqueID)
		}
		return attachment{kind: "video", fileID: v.FileID, uniqueID: v.FileUniqueID, size: int64(v.FileSize), name: name}, true
	case msg.Audio != nil:
		a := msg.Audio
		name := a.FileName
		if name == "" {
			name = fmt.Sprintf("audio_%s.mp3", a.FileUniqueID)
		}
		return attachment{kind: "audio", fileID: a.FileID, uniqueID: a.FileUniqueID, size: int64(a.FileSize), name: name}, true
	case msg.Voice != nil:
		v := msg.Voice
		return attachment{
			kind:     "voice",
			fileID:   v.FileID,
			uniqueID: v.FileUniqueID,
			size:     int64(v.FileSize),
			name:     fmt.Sprintf("voice_%s.ogg", v.FileUniqueID),
		}, true
	}
	return attachment{}, false
}

func pickPhoto(items []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := items[0]
	for _, item := range items[1:] {
		if item.Width*item.Height > best.Width*best.Height {
			best = item
		}
	}
	return best
}
