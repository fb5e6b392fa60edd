package mtproto

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"

	"github.com/teledrop/teledrop/internal/config"
)

// Client runs the gotd user session and feeds mirrored messages to the
// coordinator. The session must have been authorized beforehand (the login
// command writes the session file).
type Client struct {
	logger      *slog.Logger
	cfg         config.MTProtoConfig
	botUsername string
	coord       *Coordinator
}

func NewClient(log *slog.Logger, cfg config.MTProtoConfig, botUsername string, coord *Coordinator) *Client {
	return &Client{
		logger:      log.With(slog.String("component", "mtproto")),
		cfg:         cfg,
		botUsername: botUsername,
		coord:       coord,
	}
}

// Run connects and blocks until ctx is cancelled or the session fails.
func (c *Client) Run(ctx context.Context) error {
	dispatcher := tg.NewUpdateDispatcher()
	client := telegram.NewClient(c.cfg.APIID, c.cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: c.cfg.SessionFile},
		UpdateHandler:  dispatcher,
	})

	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
		msg, ok := update.Message.(*tg.Message)
		if !ok {
			return nil
		}
		// Transfers can run for minutes; never block the update loop.
		go c.coord.OnMessage(ctx, msg)
		return nil
	})

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return fmt.Errorf("session not authorized, run the login command first")
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self: %w", err)
		}
		selfName := self.FirstName
		if selfName == "" {
			selfName = "User"
		}
		c.logger.Info("logged in",
			slog.String("first_name", self.FirstName),
			slog.String("username", self.Username))

		api := client.API()
		dl := downloader.NewDownloader()
		sender := message.NewSender(api)

		transfer := func(ctx context.Context, med media, w io.Writer) error {
			_, err := dl.Download(api, med.location()).Stream(ctx, w)
			return err
		}
		notify := func(ctx context.Context, text string) error {
			_, err := sender.Resolve(c.botUsername).Text(ctx, text)
			return err
		}

		c.coord.bind(selfName, transfer, notify)
		defer c.coord.unbind()

		c.logger.Info("large file downloads enabled")
		<-ctx.Done()
		return ctx.Err()
	})
}
