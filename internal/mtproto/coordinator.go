// Package mtproto owns the user-account client session. The bot account
// mirrors every message sent to it as an outgoing message on the user side;
// the coordinator watches those mirrors and downloads media the Bot API
// cannot (anything above its 20 MiB ceiling), resolving uploader attribution
// through the shared context registry.
package mtproto

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/teledrop/teledrop/internal/bot"
	"github.com/teledrop/teledrop/internal/events"
	"github.com/teledrop/teledrop/internal/metrics"
	"github.com/teledrop/teledrop/internal/progress"
	"github.com/teledrop/teledrop/internal/registry"
	"github.com/teledrop/teledrop/internal/storage"
)

// contextWait bounds how long the coordinator waits for the Bot API handler
// to publish attribution when the mirrored message races ahead of it.
const contextWait = 2500 * time.Millisecond

// StatusEditor edits the status message the intake handler posted in the
// chat. Implemented by the Bot API side.
type StatusEditor interface {
	EditStatus(handle registry.StatusHandle, text string) error
}

// transferFunc streams one media payload into w. Bound by the client once
// the session is connected.
type transferFunc func(ctx context.Context, med media, w io.Writer) error

// notifyFunc sends a message to the bot chat from the user session. Used for
// completion notices when no editable status message exists.
type notifyFunc func(ctx context.Context, text string) error

// Coordinator turns mirrored large-media messages into local files.
type Coordinator struct {
	logger *slog.Logger
	botID  int64
	store  *storage.Store
	reg    *registry.Registry
	hub    *events.Hub
	editor StatusEditor

	mu       sync.Mutex
	ready    bool
	selfName string
	transfer transferFunc
	notify   notifyFunc

	// sleep is swappable in flood-wait tests.
	sleep func(time.Duration)
}

func NewCoordinator(log *slog.Logger, botID int64, store *storage.Store, reg *registry.Registry, hub *events.Hub, editor StatusEditor) *Coordinator {
	return &Coordinator{
		logger: log.With(slog.String("component", "coordinator")),
		botID:  botID,
		store:  store,
		reg:    reg,
		hub:    hub,
		editor: editor,
		sleep:  time.Sleep,
	}
}

// bind arms the coordinator with a live session. Called by the client once
// connected and authorized.
func (c *Coordinator) bind(selfName string, transfer transferFunc, notify notifyFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfName = selfName
	c.transfer = transfer
	c.notify = notify
	c.ready = true
}

func (c *Coordinator) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	c.transfer = nil
	c.notify = nil
}

// Ready reports whether the large-file lane is open.
func (c *Coordinator) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Coordinator) session() (string, transferFunc, notifyFunc, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfName, c.transfer, c.notify, c.ready
}

// OnMessage is the dispatcher entry point for every new message the user
// session observes. Only self-originated messages to the bot account matter.
func (c *Coordinator) OnMessage(ctx context.Context, msg *tg.Message) {
	if msg == nil || !msg.Out {
		return
	}
	peer, ok := msg.PeerID.(*tg.PeerUser)
	if !ok || peer.UserID != c.botID {
		return
	}
	if err := c.handle(ctx, msg); err != nil {
		// A failed transfer must never take down the update loop.
		c.logger.Error("download failed", slog.Int("message_id", msg.ID), slog.Any("error", err))
	}
}

func (c *Coordinator) handle(ctx context.Context, msg *tg.Message) error {
	med, ok := extractMedia(msg)
	if !ok {
		c.logger.Debug("outgoing non-media message", slog.Int("message_id", msg.ID))
		return nil
	}

	c.logger.Info("outgoing media observed",
		slog.Int("message_id", msg.ID),
		slog.String("file_unique_id", med.uniqueID),
		slog.Int64("size", med.size))

	// The Bot API handler owns anything provably within its ceiling. An
	// unknown (zero) size is not provably small, so it stays with us.
	if med.size > 0 && med.size <= bot.MaxBotAPIFileSize {
		c.logger.Info("small file, leaving to Bot API", slog.Int64("size", med.size))
		return nil
	}

	selfName, transfer, notify, ready := c.session()
	if !ready {
		return fmt.Errorf("session not ready")
	}

	// The mirror can arrive before the Bot API handler registers context;
	// wait briefly, then fall back to defaults rather than dropping the file.
	dctx, found := c.reg.TakeWait(ctx, med.uniqueID, contextWait)
	c.logger.Info("context resolved", slog.Bool("found", found), slog.String("file_unique_id", med.uniqueID))

	name := dctx.OriginalName
	if name == "" {
		name = med.filename
	}
	if name == "" {
		name = fmt.Sprintf("file_%d", msg.ID)
	}
	username := dctx.Username
	if username == "" {
		username = selfName
	}
	kind := dctx.FileType
	if kind == "" {
		kind = "document"
	}

	_, finalName, err := c.store.UniquePath(name, strconv.Itoa(msg.ID))
	if err != nil {
		return err
	}

	reporter := progress.NewReporter(finalName, c.progressSink(dctx.Status))

	started := time.Now()
	if err := c.download(ctx, med, finalName, reporter, transfer); err != nil {
		if wait, ok := tgerr.AsFloodWait(err); ok {
			c.logger.Warn("flood wait", slog.Duration("wait", wait))
			c.sleep(wait)
			c.editStatus(dctx.Status, "⚠️ Rate limited — please retry.")
			return nil
		}
		metrics.DownloadDuration.WithLabelValues("mtproto", "error").Observe(time.Since(started).Seconds())
		reporter.Fail()
		c.editStatus(dctx.Status, "❌ Download failed. Check server logs.")
		return err
	}

	info, err := c.store.Stat(finalName)
	if err != nil {
		metrics.DownloadDuration.WithLabelValues("mtproto", "error").Observe(time.Since(started).Seconds())
		reporter.Fail()
		c.editStatus(dctx.Status, "❌ Download failed. Check server logs.")
		return fmt.Errorf("downloaded file missing: %s", finalName)
	}

	reporter.Finish(info.Size)
	c.hub.Broadcast(events.FileReceived(username, finalName, kind, info.Size))
	metrics.FilesReceived.WithLabelValues("mtproto").Inc()
	metrics.DownloadBytes.WithLabelValues("mtproto").Add(float64(info.Size))
	metrics.DownloadDuration.WithLabelValues("mtproto", "success").Observe(time.Since(started).Seconds())

	done := fmt.Sprintf("✅ *Downloaded:* `%s`\nSize: %.1f MB", finalName, float64(info.Size)/(1024*1024))
	if dctx.Status != nil {
		c.editStatus(dctx.Status, done)
	} else if notify != nil {
		if err := notify(ctx, fmt.Sprintf("✅ Downloaded: `%s` (%.1f MB)", finalName, float64(info.Size)/(1024*1024))); err != nil {
			c.logger.Warn("completion notice failed", slog.Any("error", err))
		}
	}

	c.logger.Info("download complete",
		slog.String("name", finalName),
		slog.Int64("size", info.Size),
		slog.String("username", username))
	return nil
}

func (c *Coordinator) download(ctx context.Context, med media, finalName string, reporter *progress.Reporter, transfer transferFunc) error {
	out, err := c.store.Create(finalName)
	if err != nil {
		return err
	}
	cw := &countingWriter{w: out, total: med.size, reporter: reporter}
	if err := transfer(ctx, med, cw); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// progressSink edits the chat status message with a quantized bar and pushes
// the event to the dashboard. Both are best-effort: a delivery failure never
// aborts the transfer.
func (c *Coordinator) progressSink(status *registry.StatusHandle) progress.Sink {
	return func(u progress.Update) {
		if status != nil && !u.Done {
			text := fmt.Sprintf("⏳ Downloading: [%s] %d%%\n`%s`", progress.Bar(u.Pct), u.Pct, u.Filename)
			if err := c.editor.EditStatus(*status, text); err != nil {
				c.logger.Debug("status edit failed", slog.Any("error", err))
			}
		}
		c.hub.Broadcast(events.Progress(u.Filename, u.Current, u.Total, u.Pct, u.Done))
	}
}

// editStatus is the named best-effort wrapper for chat-side notifications.
func (c *Coordinator) editStatus(status *registry.StatusHandle, text string) {
	if status == nil {
		return
	}
	if err := c.editor.EditStatus(*status, text); err != nil {
		c.logger.Warn("status edit failed", slog.Any("error", err))
	}
}

type countingWriter struct {
	w        io.Writer
	n        int64
	total    int64
	reporter *progress.Reporter
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	if n > 0 {
		cw.reporter.Report(cw.n, cw.total)
	}
	return n, err
}
