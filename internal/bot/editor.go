package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/teledrop/teledrop/internal/registry"
)

// MessageEditor rewrites previously sent status messages through the Bot
// API. The MTProto coordinator uses it to surface transfer progress in the
// chat the file came from.
type MessageEditor struct {
	api *tgbotapi.BotAPI
}

func NewMessageEditor(api *tgbotapi.BotAPI) *MessageEditor {
	return &MessageEditor{api: api}
}

func (e *MessageEditor) EditStatus(handle registry.StatusHandle, text string) error {
	edit := tgbotapi.NewEditMessageText(handle.ChatID, handle.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := e.api.Send(edit)
	return err
}
