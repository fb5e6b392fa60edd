package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultDownloadsDir, cfg.Downloads.Dir)
	assert.Equal(t, "admin", cfg.Dashboard.Username)
	assert.False(t, cfg.MTProto.Enabled())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9000"

[telegram]
bot_token = "12345:abcdef"
bot_username = "filedropbot"
allowed_chat_ids = [100, 200]

[mtproto]
api_id = 42
api_hash = "deadbeef"
phone = "+15550001111"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []int64{100, 200}, cfg.Telegram.AllowedChatIDs)
	assert.True(t, cfg.MTProto.Enabled())
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultStaticDir, cfg.Server.StaticDir)
	assert.Equal(t, DefaultSessionFile, cfg.MTProto.SessionFile)
}

func TestBotID(t *testing.T) {
	tests := []struct {
		token   string
		want    int64
		wantErr bool
	}{
		{"12345:abc", 12345, false},
		{"999:x", 999, false},
		{"missing-colon", 0, true},
		{"abc:def", 0, true},
	}
	for _, tt := range tests {
		got, err := TelegramConfig{BotToken: tt.token}.BotID()
		if tt.wantErr {
			assert.Error(t, err, tt.token)
			continue
		}
		require.NoError(t, err, tt.token)
		assert.Equal(t, tt.want, got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "777:env-token")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "777:env-token", cfg.Telegram.BotToken)
}
