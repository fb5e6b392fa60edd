package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8000"
	DefaultStaticDir     = "static"
	DefaultDownloadsDir  = "downloads"
	DefaultSessionFile   = "mtproto.session"
	DefaultContextTTL    = "10m"
	DefaultSessionMaxAge = "168h" // 7 days
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Telegram  TelegramConfig  `toml:"telegram"`
	MTProto   MTProtoConfig   `toml:"mtproto"`
	Downloads DownloadsConfig `toml:"downloads"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type DashboardConfig struct {
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	SessionMaxAge string `toml:"session_max_age"`
}

type TelegramConfig struct {
	BotToken       string  `toml:"bot_token"`
	BotUsername    string  `toml:"bot_username"`
	AllowedChatIDs []int64 `toml:"allowed_chat_ids"`
}

// MTProtoConfig holds the user-account credentials for the low-level client.
// All three of APIID, APIHash and Phone must be set for large-file support;
// otherwise the service runs in Bot-API-only mode (20 MiB limit applies).
type MTProtoConfig struct {
	APIID       int    `toml:"api_id"`
	APIHash     string `toml:"api_hash"`
	Phone       string `toml:"phone"`
	SessionFile string `toml:"session_file"`
}

type DownloadsConfig struct {
	Dir        string `toml:"dir"`
	ContextTTL string `toml:"context_ttl"`
}

// BotID extracts the numeric bot id from the bot token ("<id>:<secret>").
func (c TelegramConfig) BotID() (int64, error) {
	head, _, ok := strings.Cut(c.BotToken, ":")
	if !ok {
		return 0, fmt.Errorf("bot token has no id prefix")
	}
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse bot id: %w", err)
	}
	return id, nil
}

// Enabled reports whether the MTProto credentials are complete.
func (c MTProtoConfig) Enabled() bool {
	return c.APIID != 0 && strings.TrimSpace(c.APIHash) != "" && strings.TrimSpace(c.Phone) != ""
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:      DefaultHTTPAddr,
			StaticDir: DefaultStaticDir,
		},
		Dashboard: DashboardConfig{
			Username:      "admin",
			Password:      "changeme",
			SessionMaxAge: DefaultSessionMaxAge,
		},
		MTProto: MTProtoConfig{
			SessionFile: DefaultSessionFile,
		},
		Downloads: DownloadsConfig{
			Dir:        DefaultDownloadsDir,
			ContextTTL: DefaultContextTTL,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return applyEnv(cfg), nil
}

// applyEnv lets secrets come from the environment instead of the config file.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("MTPROTO_API_HASH"); v != "" {
		cfg.MTProto.APIHash = v
	}
	if v := os.Getenv("DASHBOARD_PASSWORD"); v != "" {
		cfg.Dashboard.Password = v
	}
	return cfg
}
