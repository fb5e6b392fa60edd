package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/teledrop/teledrop/internal/auth"
	"github.com/teledrop/teledrop/internal/bot"
	"github.com/teledrop/teledrop/internal/config"
	"github.com/teledrop/teledrop/internal/events"
	"github.com/teledrop/teledrop/internal/handlers"
	"github.com/teledrop/teledrop/internal/logger"
	"github.com/teledrop/teledrop/internal/mtproto"
	"github.com/teledrop/teledrop/internal/registry"
	"github.com/teledrop/teledrop/internal/server"
	"github.com/teledrop/teledrop/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the MTProto session and the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe(configPath(cmd))
			return nil
		},
	}
}

func runServe(cfgPath string) {
	fx.New(
		fx.Provide(
			func() (config.Config, error) { return provideConfig(cfgPath) },
			provideLogger,
			provideStore,
			provideRegistry,
			events.NewHub,
			provideSessions,
			provideBotAPI,
			bot.NewMessageEditor,
			provideCoordinator,
			provideMTProtoClient,
			provideLargeDownloader,
			provideBot,
			providePresence,
			provideDashboardHandler,
			provideAuthHandler,
			handlers.NewDownloadsHandler,
			handlers.NewWSHandler,
			handlers.NewMetricsHandler,
			provideServer,
		),
		fx.Invoke(
			startContextJanitor,
			startBot,
			startMTProto,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Telegram.BotToken == "" {
		return config.Config{}, fmt.Errorf("telegram.bot_token is required")
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideStore(cfg config.Config) (*storage.Store, error) {
	return storage.New(cfg.Downloads.Dir)
}

func provideRegistry(log *slog.Logger, cfg config.Config) (*registry.Registry, error) {
	ttl, err := time.ParseDuration(cfg.Downloads.ContextTTL)
	if err != nil {
		return nil, fmt.Errorf("downloads.context_ttl: %w", err)
	}
	return registry.New(log, ttl), nil
}

func provideSessions(cfg config.Config) (*auth.Sessions, error) {
	maxAge, err := time.ParseDuration(cfg.Dashboard.SessionMaxAge)
	if err != nil {
		return nil, fmt.Errorf("dashboard.session_max_age: %w", err)
	}
	return auth.NewSessions(maxAge), nil
}

func provideBotAPI(log *slog.Logger, cfg config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	log.Info("bot api connected", slog.String("username", api.Self.UserName))
	return api, nil
}

func provideCoordinator(log *slog.Logger, cfg config.Config, store *storage.Store, reg *registry.Registry, hub *events.Hub, editor *bot.MessageEditor) (*mtproto.Coordinator, error) {
	botID, err := cfg.Telegram.BotID()
	if err != nil {
		return nil, err
	}
	return mtproto.NewCoordinator(log, botID, store, reg, hub, editor), nil
}

func provideMTProtoClient(log *slog.Logger, cfg config.Config, api *tgbotapi.BotAPI, coord *mtproto.Coordinator) *mtproto.Client {
	botUsername := cfg.Telegram.BotUsername
	if botUsername == "" {
		botUsername = api.Self.UserName
	}
	return mtproto.NewClient(log, cfg.MTProto, botUsername, coord)
}

// provideLargeDownloader hands the bot its large-file lane. Without MTProto
// credentials the lane is absent and the bot reports oversized files as such.
func provideLargeDownloader(cfg config.Config, coord *mtproto.Coordinator) bot.LargeDownloader {
	if !cfg.MTProto.Enabled() {
		return nil
	}
	return coord
}

func provideBot(log *slog.Logger, api *tgbotapi.BotAPI, cfg config.Config, store *storage.Store, reg *registry.Registry, hub *events.Hub, large bot.LargeDownloader) *bot.Bot {
	return bot.New(log, api, cfg.Telegram, store, reg, hub, large)
}

type presence struct {
	api     *tgbotapi.BotAPI
	coord   *mtproto.Coordinator
	enabled bool
}

func (p *presence) BotConnected() bool { return p.api != nil }

func (p *presence) LargeFileLaneReady() bool { return p.enabled && p.coord.Ready() }

func providePresence(cfg config.Config, api *tgbotapi.BotAPI, coord *mtproto.Coordinator) handlers.BotPresence {
	return &presence{api: api, coord: coord, enabled: cfg.MTProto.Enabled()}
}

func provideDashboardHandler(log *slog.Logger, cfg config.Config, hub *events.Hub, pres handlers.BotPresence) *handlers.DashboardHandler {
	return handlers.NewDashboardHandler(log, cfg.Server.StaticDir, hub, pres)
}

func provideAuthHandler(log *slog.Logger, sessions *auth.Sessions, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, sessions, cfg.Dashboard, cfg.Server.StaticDir)
}

func provideServer(log *slog.Logger, cfg config.Config, sessions *auth.Sessions, dash *handlers.DashboardHandler, authH *handlers.AuthHandler, downloads *handlers.DownloadsHandler, ws *handlers.WSHandler, metricsH *handlers.MetricsHandler) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, sessions, dash, authH, downloads, ws, metricsH)
}

// startContextJanitor evicts expired large-file contexts so an abandoned
// handoff cannot hold registry entries forever.
func startContextJanitor(lc fx.Lifecycle, reg *registry.Registry) error {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", reg.Evict); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { c.Start(); return nil },
		OnStop:  func(ctx context.Context) error { <-c.Stop().Done(); return nil },
	})
	return nil
}

func startBot(lc fx.Lifecycle, b *bot.Bot) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				b.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// startMTProto runs the user session when credentials are configured. A
// session failure is logged, not fatal: the Bot API lane keeps working.
func startMTProto(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, client *mtproto.Client) {
	if !cfg.MTProto.Enabled() {
		log.Info("mtproto disabled, large file downloads unavailable")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("mtproto session ended", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("dashboard listening", slog.String("addr", cfg.Server.Addr))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
