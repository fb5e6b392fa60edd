// Package bot is the high-level intake handler: it long-polls the Telegram
// Bot API, classifies incoming media, downloads anything the Bot API can
// serve itself, and hands larger files off to the MTProto coordinator.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/teledrop/teledrop/internal/config"
	"github.com/teledrop/teledrop/internal/events"
	"github.com/teledrop/teledrop/internal/metrics"
	"github.com/teledrop/teledrop/internal/registry"
	"github.com/teledrop/teledrop/internal/storage"
)

// MaxBotAPIFileSize is the hard Bot API download ceiling. Anything above it
// must go through the MTProto coordinator.
const MaxBotAPIFileSize = 20 * 1024 * 1024

// LargeDownloader is the coordinator as seen from the intake side: the only
// question the intake path asks is whether the large-file lane is open.
type LargeDownloader interface {
	Ready() bool
}

type Bot struct {
	logger  *slog.Logger
	api     *tgbotapi.BotAPI
	cfg     config.TelegramConfig
	store   *storage.Store
	reg     *registry.Registry
	hub     *events.Hub
	large   LargeDownloader
	httpc   *http.Client

	// resolveFileURL is swappable in tests; the Bot API file endpoint is a
	// package constant in tgbotapi and cannot be pointed at a test server.
	resolveFileURL func(fileID string) (string, error)
}

func New(log *slog.Logger, api *tgbotapi.BotAPI, cfg config.TelegramConfig, store *storage.Store, reg *registry.Registry, hub *events.Hub, large LargeDownloader) *Bot {
	b := &Bot{
		logger: log.With(slog.String("component", "bot")),
		api:    api,
		cfg:    cfg,
		store:  store,
		reg:    reg,
		hub:    hub,
		large:  large,
		httpc:  &http.Client{Timeout: 10 * time.Minute},
	}
	b.resolveFileURL = api.GetFileDirectURL
	return b
}

// Run long-polls for updates until ctx is cancelled. No error in one
// message's handling may stop the loop.
func (b *Bot) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("polling started", slog.String("username", b.api.Self.UserName))
	b.hub.Broadcast(events.Status("bot_started", "Telegram bot is now polling"))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			// Drain so the library's polling goroutine can exit; an
			// in-flight long-poll would otherwise keep the getUpdates
			// session alive and conflict with the next start.
			for range updates {
			}
			b.hub.Broadcast(events.Status("bot_stopped", "Telegram bot polling stopped"))
			b.logger.Info("polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("updates channel closed")
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) authorized(chatID int64) bool {
	if len(b.cfg.AllowedChatIDs) == 0 {
		return true
	}
	for _, id := range b.cfg.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return "Unknown"
	}
	if msg.From.UserName != "" {
		return msg.From.UserName
	}
	return msg.From.FirstName
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.authorized(chatID) {
		b.reply(chatID, msg.MessageID, "Sorry, you are not authorized to use this bot.", "")
		b.logger.Warn("unauthorized sender", slog.Int64("chat_id", chatID))
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	if _, ok := classify(msg); ok {
		if err := b.handleFile(ctx, msg); err != nil {
			b.logger.Error("handle file failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
		return
	}

	if msg.Text != "" {
		b.reply(chatID, msg.MessageID, "Send me a file (document, photo, video, audio or voice) and I will save it. Use /help for details.", "")
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	username := senderName(msg)

	switch msg.Command() {
	case "start":
		welcome := "🤖 *Welcome to Telegram Dashboard Bot!*\n\n" +
			"I can receive your files and display activity on a live dashboard.\n\n" +
			"*Commands:*\n" +
			"/start - Show this message\n" +
			"/help - Show help information\n\n" +
			"*Send Files:*\n" +
			"Send any document, photo, video, audio or voice message to download it to the server."
		b.reply(chatID, msg.MessageID, welcome, tgbotapi.ModeMarkdown)
		b.hub.Broadcast(events.Status("bot_command", fmt.Sprintf("User %s started the bot", username)))
	case "help":
		help := "📚 *Help - Telegram Dashboard Bot*\n\n" +
			"*How to use:*\n" +
			"1. Send any file (document, photo, video, audio, voice) and the bot will save it to the server.\n" +
			"2. You can download files from the dashboard at `/downloads`.\n\n" +
			"*Status Updates:*\n" +
			"You'll receive a confirmation message when your file is saved."
		b.reply(chatID, msg.MessageID, help, tgbotapi.ModeMarkdown)
	default:
		b.reply(chatID, msg.MessageID, "Unknown command. Use /help to see available commands.", "")
	}
}

// handleFile applies the size threshold policy: small files are downloaded
// directly, large ones are deferred to the coordinator via the registry.
func (b *Bot) handleFile(ctx context.Context, msg *tgbotapi.Message) error {
	att, ok := classify(msg)
	if !ok {
		b.reply(msg.Chat.ID, msg.MessageID, "Unsupported file type.", "")
		return nil
	}
	chatID := msg.Chat.ID
	username := senderName(msg)

	if att.size > MaxBotAPIFileSize {
		sizeMB := float64(att.size) / (1024 * 1024)

		if b.large != nil && b.large.Ready() {
			notice := fmt.Sprintf("⏳ *Large file detected* (%.1f MB)\nDownloading via MTProto… this may take a while.", sizeMB)
			sent, err := b.send(chatID, msg.MessageID, notice, tgbotapi.ModeMarkdown)
			var status *registry.StatusHandle
			if err != nil {
				b.logger.Warn("send large-file notice failed", slog.Any("error", err))
			} else {
				status = &registry.StatusHandle{ChatID: chatID, MessageID: sent.MessageID}
			}
			b.reg.Put(att.uniqueID, registry.Context{
				Username:     username,
				FileType:     att.kind,
				OriginalName: att.name,
				Status:       status,
			})
			b.logger.Info("deferred to coordinator",
				slog.String("file_unique_id", att.uniqueID),
				slog.String("name", att.name),
				slog.Int64("size", att.size))
			return nil
		}

		b.reply(chatID, msg.MessageID, fmt.Sprintf(
			"⚠️ *File too large* (%.1f MB)\n\n"+
				"Telegram bots can only download files up to 20 MB.\n"+
				"To enable large file support, configure MTProto credentials in the config.", sizeMB),
			tgbotapi.ModeMarkdown)
		return nil
	}

	finalName, err := b.downloadSmall(ctx, att)
	if err != nil {
		return fmt.Errorf("download %s: %w", att.name, err)
	}

	b.hub.Broadcast(events.FileReceived(username, finalName, att.kind, att.size))
	metrics.FilesReceived.WithLabelValues("bot_api").Inc()
	metrics.DownloadBytes.WithLabelValues("bot_api").Add(float64(att.size))

	b.reply(chatID, msg.MessageID, fmt.Sprintf("✅ *File saved:* `%s`\nYou can download it from the dashboard.", finalName), tgbotapi.ModeMarkdown)
	return nil
}

// downloadSmall fetches a ≤20 MiB file over the Bot API file endpoint and
// writes it to a collision-free path. Returns the stored basename.
func (b *Bot) downloadSmall(ctx context.Context, att attachment) (string, error) {
	url, err := b.resolveFileURL(att.fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := b.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}

	_, finalName, err := b.store.UniquePath(att.name, att.uniqueID)
	if err != nil {
		return "", err
	}
	out, err := b.store.Create(finalName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("write %s: %w", finalName, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	b.logger.Info("file saved", slog.String("name", finalName), slog.Int64("size", att.size))
	return finalName, nil
}

func (b *Bot) send(chatID int64, replyTo int, text, parseMode string) (tgbotapi.Message, error) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyToMessageID = replyTo
	out.ParseMode = parseMode
	return b.api.Send(out)
}

// reply sends a message and only logs delivery failures; chat notifications
// are best-effort.
func (b *Bot) reply(chatID int64, replyTo int, text, parseMode string) {
	if _, err := b.send(chatID, replyTo, text, parseMode); err != nil {
		b.logger.Warn("reply failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}
