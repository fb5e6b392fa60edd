package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDocument(t *testing.T) {
	msg := &tgbotapi.Message{Document: &tgbotapi.Document{
		FileID: "f", FileUniqueID: "u", FileName: "report.pdf", FileSize: 1000,
	}}
	att, ok := classify(msg)
	require.True(t, ok)
	assert.Equal(t, "document", att.kind)
	assert.Equal(t, "report.pdf", att.name)
	assert.Equal(t, int64(1000), att.size)
}

func TestClassifyDocumentSynthesizedName(t *testing.T) {
	msg := &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "f", FileUniqueID: "uid9"}}
	att, ok := classify(msg)
	require.True(t, ok)
	assert.Equal(t, "document_uid9", att.name)
}

func TestClassifyPhotoPicksLargest(t *testing.T) {
	msg := &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{
		{FileID: "small", FileUniqueID: "us", Width: 90, Height: 60, FileSize: 500},
		{FileID: "big", FileUniqueID: "ub", Width: 1280, Height: 720, FileSize: 90000},
		{FileID: "mid", FileUniqueID: "um", Width: 320, Height: 240, FileSize: 4000},
	}}
	att, ok := classify(msg)
	require.True(t, ok)
	assert.Equal(t, "photo", att.kind)
	assert.Equal(t, "big", att.fileID)
	assert.Equal(t, "photo_ub.jpg", att.name)
}

func TestClassifyPrecedenceDocumentFirst(t *testing.T) {
	msg := &tgbotapi.Message{
		Document: &tgbotapi.Document{FileID: "d", FileUniqueID: "ud", FileName: "a.bin"},
		Video:    &tgbotapi.Video{FileID: "v", FileUniqueID: "uv"},
	}
	att, ok := classify(msg)
	require.True(t, ok)
	assert.Equal(t, "document", att.kind)
}

func TestClassifyVideoAudioVoice(t *testing.T) {
	att, ok := classify(&tgbotapi.Message{Video: &tgbotapi.Video{FileID: "v", FileUniqueID: "uv"}})
	require.True(t, ok)
	assert.Equal(t, "video", att.kind)
	assert.Equal(t, "video_uv.mp4", att.name)

	att, ok = classify(&tgbotapi.Message{Audio: &tgbotapi.Audio{FileID: "a", FileUniqueID: "ua", FileName: "song.flac"}})
	require.True(t, ok)
	assert.Equal(t, "audio", att.kind)
	assert.Equal(t, "song.flac", att.name)

	att, ok = classify(&tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "o", FileUniqueID: "uo"}})
	require.True(t, ok)
	assert.Equal(t, "voice", att.kind)
	assert.Equal(t, "voice_uo.ogg", att.name)
}

func TestClassifyNoMedia(t *testing.T) {
	_, ok := classify(&tgbotapi.Message{Text: "just text"})
	assert.False(t, ok)
}
