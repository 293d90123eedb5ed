package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dumpbot/internal/model"
	"dumpbot/internal/repository"
	"dumpbot/internal/service"
)

type fakeClient struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) sentTexts() []string {
	var texts []string
	for _, c := range f.sent {
		if mc, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, mc.Text)
		}
	}
	return texts
}

type fakeCopier struct {
	calls []tgbotapi.CopyMessageConfig
	errs  []error
}

func (f *fakeCopier) CopyMessage(cfg tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error) {
	f.calls = append(f.calls, cfg)
	if len(f.errs) == 0 {
		return tgbotapi.MessageID{MessageID: 1}, nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return tgbotapi.MessageID{}, err
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fixture struct {
	bot    *Bot
	client *fakeClient
	copier *fakeCopier
	pinger *fakePinger
	repo   *repository.BindingRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bindings.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ChannelBinding{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	client := &fakeClient{}
	copier := &fakeCopier{}
	pinger := &fakePinger{}
	repo := repository.NewBindingRepository(db)

	b := &Bot{
		client:   client,
		registry: service.NewRegistry(repo),
		relay:    service.NewRelay(copier, zerolog.Nop()),
		health:   service.NewHealth(pinger),
		log:      zerolog.Nop(),
	}

	return &fixture{bot: b, client: client, copier: copier, pinger: pinger, repo: repo}
}

func privateMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 77,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
}

func privatePhoto(userID int64) *tgbotapi.Message {
	msg := privateMessage(userID, "")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "photo"}}
	return msg
}

func configSubmission(userID int64, text string) *tgbotapi.Message {
	msg := privateMessage(userID, text)
	msg.ReplyToMessage = &tgbotapi.Message{
		Text: "Send your " + promptMarker + "\n\nExample:\n-1001234567890",
	}
	return msg
}

func TestTextWithoutBindingIsSilentlyIgnored(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bot.handleMessage(context.Background(), privateMessage(1, "hello")))

	assert.Empty(t, f.client.sent, "no reply expected for bare text without a binding")
	assert.Empty(t, f.copier.calls)
}

func TestPhotoWithoutBindingPromptsSetup(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bot.handleMessage(context.Background(), privatePhoto(1)))

	texts := f.client.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "/settings")
	assert.Empty(t, f.copier.calls)
}

func TestCommandIsNeverRelayed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Set(ctx, 1, -100555))

	msg := privateMessage(1, "/start")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

	require.NoError(t, f.bot.handleMessage(ctx, msg))

	assert.Empty(t, f.copier.calls, "commands must not reach the relay path")
	require.Len(t, f.client.sentTexts(), 1)
}

func TestBoundMessageIsCopiedToDumpChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Set(ctx, 1, -100555))

	require.NoError(t, f.bot.handleMessage(ctx, privateMessage(1, "relay me")))

	require.Len(t, f.copier.calls, 1)
	call := f.copier.calls[0]
	assert.Equal(t, int64(-100555), call.ChatID)
	assert.Equal(t, int64(1), call.FromChatID)
	assert.Equal(t, 77, call.MessageID)
	assert.Empty(t, f.client.sent, "a successful relay sends no reply")
}

func TestRelayFailureYieldsGenericReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Set(ctx, 1, -100555))
	f.copier.errs = []error{errors.New("CHAT_WRITE_FORBIDDEN")}

	require.NoError(t, f.bot.handleMessage(ctx, privateMessage(1, "relay me")))

	texts := f.client.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Failed to copy")
	assert.NotContains(t, texts[0], "CHAT_WRITE_FORBIDDEN", "internal detail must not leak to the user")
}

func TestConfigSubmissionStoresBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.handleMessage(ctx, configSubmission(1, "-1001234567890")))

	channel, found, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(-1001234567890), channel)

	texts := f.client.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], strconv.FormatInt(-1001234567890, 10))
}

func TestConfigSubmissionRejectsNonNumericInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.handleMessage(ctx, configSubmission(1, "abc")))

	_, found, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found, "invalid input must leave the registry untouched")

	texts := f.client.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Invalid channel ID")
}

func TestConfigSubmissionOverwritesExistingBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Set(ctx, 1, -100111))

	require.NoError(t, f.bot.handleMessage(ctx, configSubmission(1, "-100222")))

	channel, found, err := f.repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(-100222), channel)
}

func TestHealthCommandReflectsStoreState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	healthCmd := privateMessage(1, "/health")
	healthCmd.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}}

	require.NoError(t, f.bot.handleMessage(ctx, healthCmd))
	texts := f.client.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Database connection OK")

	f.pinger.err = errors.New("store is down")
	require.NoError(t, f.bot.handleMessage(ctx, healthCmd))
	texts = f.client.sentTexts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "Something is wrong")
	assert.Contains(t, texts[1], "store is down")
}

func TestSettingsShowsBindingAndConfigureButton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settingsCmd := privateMessage(1, "/settings")
	settingsCmd.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 9}}

	require.NoError(t, f.bot.handleMessage(ctx, settingsCmd))
	require.Len(t, f.client.sent, 1)
	mc, ok := f.client.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, mc.Text, "Not set")
	require.IsType(t, tgbotapi.InlineKeyboardMarkup{}, mc.ReplyMarkup)

	require.NoError(t, f.repo.Set(ctx, 1, -100555))
	require.NoError(t, f.bot.handleMessage(ctx, settingsCmd))
	require.Len(t, f.client.sent, 2)
	mc = f.client.sent[1].(tgbotapi.MessageConfig)
	assert.Contains(t, mc.Text, "-100555")
}

func TestSetDumpCallbackSendsForcedReplyPrompt(t *testing.T) {
	f := newFixture(t)

	cb := &tgbotapi.CallbackQuery{
		ID:   "cb1",
		Data: cbSetDump,
		From: &tgbotapi.User{ID: 1},
		Message: &tgbotapi.Message{
			MessageID: 5,
			Chat:      &tgbotapi.Chat{ID: 1, Type: "private"},
		},
	}

	require.NoError(t, f.bot.handleCallback(cb))

	// Ack plus delete of the settings message.
	require.Len(t, f.client.requests, 2)
	assert.IsType(t, tgbotapi.CallbackConfig{}, f.client.requests[0])
	assert.IsType(t, tgbotapi.DeleteMessageConfig{}, f.client.requests[1])

	require.Len(t, f.client.sent, 1)
	mc, ok := f.client.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, mc.Text, promptMarker, "prompt must carry the marker the classifier matches")
	require.IsType(t, tgbotapi.ForceReply{}, mc.ReplyMarkup)
	assert.True(t, mc.ReplyMarkup.(tgbotapi.ForceReply).ForceReply)
}

func TestUnknownCallbackIsOnlyAcked(t *testing.T) {
	f := newFixture(t)

	cb := &tgbotapi.CallbackQuery{
		ID:   "cb2",
		Data: "something_else",
		From: &tgbotapi.User{ID: 1},
		Message: &tgbotapi.Message{
			MessageID: 5,
			Chat:      &tgbotapi.Chat{ID: 1, Type: "private"},
		},
	}

	require.NoError(t, f.bot.handleCallback(cb))
	assert.Len(t, f.client.requests, 1)
	assert.Empty(t, f.client.sent)
}
