package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teledrop/teledrop/internal/config"
	"github.com/teledrop/teledrop/internal/events"
	"github.com/teledrop/teledrop/internal/registry"
	"github.com/teledrop/teledrop/internal/storage"
)

// apiRecorder captures Bot API calls made against the fake endpoint.
type apiRecorder struct {
	mu    sync.Mutex
	calls []apiCall
}

type apiCall struct {
	method string
	params url.Values
}

func (r *apiRecorder) record(method string, params url.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, apiCall{method: method, params: params})
}

func (r *apiRecorder) byMethod(method string) []apiCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []apiCall
	for _, c := range r.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

// newFakeBotAPI runs a minimal Bot API server good enough for getMe,
// sendMessage and editMessageText.
func newFakeBotAPI(t *testing.T) (*tgbotapi.BotAPI, *apiRecorder) {
	t.Helper()
	rec := &apiRecorder{}
	nextMessageID := 100

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		rec.record(method, r.Form)

		var result any
		switch method {
		case "getMe":
			result = tgbotapi.User{ID: 99, IsBot: true, FirstName: "drop", UserName: "filedropbot"}
		case "sendMessage", "editMessageText":
			nextMessageID++
			result = tgbotapi.Message{MessageID: nextMessageID}
		default:
			result = true
		}
		raw, err := json.Marshal(result)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"ok":true,"result":%s}`, raw)
	}))
	t.Cleanup(ts.Close)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("42:token", ts.URL+"/bot%s/%s")
	require.NoError(t, err)
	return api, rec
}

type fakeLarge struct{ ready bool }

func (f *fakeLarge) Ready() bool { return f.ready }

type botFixture struct {
	bot   *Bot
	rec   *apiRecorder
	store *storage.Store
	reg   *registry.Registry
}

func newBotFixture(t *testing.T, cfg config.TelegramConfig, large LargeDownloader) *botFixture {
	t.Helper()
	api, rec := newFakeBotAPI(t)
	store, err := storage.New(filepath.Join(t.TempDir(), "downloads"))
	require.NoError(t, err)
	reg := registry.New(slog.Default(), time.Minute)
	hub := events.NewHub(slog.Default())
	return &botFixture{
		bot:   New(slog.Default(), api, cfg, store, reg, hub, large),
		rec:   rec,
		store: store,
		reg:   reg,
	}
}

func mediaMessage(size int, name string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: 1234},
		From:      &tgbotapi.User{UserName: "alice"},
		Document: &tgbotapi.Document{
			FileID:       "file-id-1",
			FileUniqueID: "uid-1",
			FileName:     name,
			FileSize:     size,
		},
	}
}

func TestSmallFileDownloadedDirectly(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello file"))
	}))
	defer files.Close()

	f := newBotFixture(t, config.TelegramConfig{}, &fakeLarge{ready: true})
	f.bot.resolveFileURL = func(fileID string) (string, error) {
		assert.Equal(t, "file-id-1", fileID)
		return files.URL + "/file", nil
	}

	err := f.bot.handleFile(context.Background(), mediaMessage(10, "notes.txt"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.store.Root(), "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello file", string(data))

	// Confirmation reply went out, and nothing was handed to the registry.
	assert.NotEmpty(t, f.rec.byMethod("sendMessage"))
	assert.Equal(t, 0, f.reg.Len())
}

func TestLargeFileDeferredToCoordinator(t *testing.T) {
	f := newBotFixture(t, config.TelegramConfig{}, &fakeLarge{ready: true})
	f.bot.resolveFileURL = func(string) (string, error) {
		t.Fatal("direct download attempted for a large file")
		return "", nil
	}

	err := f.bot.handleFile(context.Background(), mediaMessage(MaxBotAPIFileSize+1, "movie.mkv"))
	require.NoError(t, err)

	ctx, ok := f.reg.Take("uid-1")
	require.True(t, ok)
	assert.Equal(t, "alice", ctx.Username)
	assert.Equal(t, "document", ctx.FileType)
	assert.Equal(t, "movie.mkv", ctx.OriginalName)
	require.NotNil(t, ctx.Status)
	assert.Equal(t, int64(1234), ctx.Status.ChatID)
	assert.NotZero(t, ctx.Status.MessageID)

	// The in-progress notice is the only message sent.
	sends := f.rec.byMethod("sendMessage")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].params.Get("text"), "Large file detected")
}

func TestLargeFileWithoutCoordinator(t *testing.T) {
	f := newBotFixture(t, config.TelegramConfig{}, nil)

	err := f.bot.handleFile(context.Background(), mediaMessage(MaxBotAPIFileSize+1, "movie.mkv"))
	require.NoError(t, err)

	assert.Equal(t, 0, f.reg.Len())
	sends := f.rec.byMethod("sendMessage")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].params.Get("text"), "File too large")
}

func TestCoordinatorNotReadyFallsBackToExplanation(t *testing.T) {
	f := newBotFixture(t, config.TelegramConfig{}, &fakeLarge{ready: false})

	err := f.bot.handleFile(context.Background(), mediaMessage(MaxBotAPIFileSize+1, "movie.mkv"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.reg.Len())
}

func TestUnauthorizedSenderWritesNothing(t *testing.T) {
	f := newBotFixture(t, config.TelegramConfig{AllowedChatIDs: []int64{999}}, nil)
	f.bot.resolveFileURL = func(string) (string, error) {
		t.Fatal("download attempted for unauthorized sender")
		return "", nil
	}

	f.bot.handleMessage(context.Background(), mediaMessage(10, "notes.txt"))

	files, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, files)

	sends := f.rec.byMethod("sendMessage")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].params.Get("text"), "not authorized")
}

func TestEmptyAllowListAllowsAll(t *testing.T) {
	f := newBotFixture(t, config.TelegramConfig{}, nil)
	assert.True(t, f.bot.authorized(555))

	f = newBotFixture(t, config.TelegramConfig{AllowedChatIDs: []int64{555}}, nil)
	assert.True(t, f.bot.authorized(555))
	assert.False(t, f.bot.authorized(556))
}

func TestCollisionGetsDisambiguated(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("second"))
	}))
	defer files.Close()

	f := newBotFixture(t, config.TelegramConfig{}, nil)
	f.bot.resolveFileURL = func(string) (string, error) { return files.URL + "/file", nil }

	require.NoError(t, os.WriteFile(filepath.Join(f.store.Root(), "notes.txt"), []byte("first"), 0o644))

	err := f.bot.handleFile(context.Background(), mediaMessage(6, "notes.txt"))
	require.NoError(t, err)

	orig, err := os.ReadFile(filepath.Join(f.store.Root(), "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(orig))

	renamed, err := os.ReadFile(filepath.Join(f.store.Root(), "notes_uid-1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(renamed))
}

func TestStartCommandRepliesAndBroadcasts(t *testing.T) {
	f := newBotFixture(t, config.TelegramConfig{}, nil)
	msg := &tgbotapi.Message{
		MessageID: 3,
		Chat:      &tgbotapi.Chat{ID: 1234},
		From:      &tgbotapi.User{UserName: "alice"},
		Text:      "/start",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}
	f.bot.handleMessage(context.Background(), msg)

	sends := f.rec.byMethod("sendMessage")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].params.Get("text"), "Welcome")
}

func TestUnknownCommand(t *testing.T) {
	f := newBotFixture(t, config.TelegramConfig{}, nil)
	msg := &tgbotapi.Message{
		MessageID: 3,
		Chat:      &tgbotapi.Chat{ID: 1234},
		From:      &tgbotapi.User{UserName: "alice"},
		Text:      "/frobnicate",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 11}},
	}
	f.bot.handleMessage(context.Background(), msg)

	sends := f.rec.byMethod("sendMessage")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].params.Get("text"), "Unknown command")
}

func TestMessageEditorEditStatus(t *testing.T) {
	api, rec := newFakeBotAPI(t)
	editor := NewMessageEditor(api)
	err := editor.EditStatus(registry.StatusHandle{ChatID: 1234, MessageID: 55}, "⏳ progress")
	require.NoError(t, err)

	edits := rec.byMethod("editMessageText")
	require.Len(t, edits, 1)
	assert.Equal(t, "1234", edits[0].params.Get("chat_id"))
	assert.Equal(t, "55", edits[0].params.Get("message_id"))
}
