package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"dumpbot/internal/service"
)

const cbSetDump = "set_dump"

const relayFailureText = "❌ Failed to copy this message to your dump channel."

// API is the slice of the Telegram client the handlers use.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wires the Telegram update stream to the registry, relay and health services.
type Bot struct {
	client   API
	api      *tgbotapi.BotAPI
	registry *service.Registry
	relay    *service.Relay
	health   *service.Health
	log      zerolog.Logger
}

func New(api *tgbotapi.BotAPI, registry *service.Registry, relay *service.Relay, health *service.Health, logger zerolog.Logger) *Bot {
	logger = logger.With().Str("component", "bot").Logger()
	logger.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		client:   api,
		api:      api,
		registry: registry,
		relay:    relay,
		health:   health,
		log:      logger,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	// Commands and configuration replies never need the binding; skip the
	// store round trip for them.
	var (
		dest       int64
		hasBinding bool
	)
	if !isCommand(msg) && !isConfigReply(msg) {
		var err error
		dest, hasBinding, err = b.registry.DumpChannel(ctx, msg.From.ID)
		if err != nil {
			b.log.Error().Err(err).Int64("user", msg.From.ID).Msg("resolve dump channel")
			return b.sendText(msg.Chat.ID, relayFailureText)
		}
	}

	switch classify(msg, hasBinding) {
	case intentCommand:
		b.log.Info().Int64("user", msg.From.ID).Str("command", msg.Command()).Msg("command received")
		return b.handleCommand(ctx, msg)
	case intentConfigReply:
		return b.handleConfigSubmission(ctx, msg)
	case intentIgnore:
		return nil
	case intentAskSetup:
		return b.sendText(msg.Chat.ID, "❌ You have not set a dump channel.\nUse /settings to configure it.")
	case intentRelay:
		return b.handleRelay(ctx, msg, dest)
	default:
		return nil
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "settings":
		return b.handleSettings(ctx, msg)
	case "health":
		return b.handleHealth(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Try /start or /settings.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	text := "👋 <b>User Dump Bot</b>\n\n" +
		"Send me any text or file and I will copy it to <i>your</i> channel.\n" +
		"Use /settings to configure your dump channel."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleSettings(ctx context.Context, msg *tgbotapi.Message) error {
	dest, hasBinding, err := b.registry.DumpChannel(ctx, msg.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("user", msg.From.ID).Msg("load settings")
		return b.sendText(msg.Chat.ID, "❌ Failed to load your settings. Try again later.")
	}

	channel := "Not set"
	if hasBinding {
		channel = strconv.FormatInt(dest, 10)
	}

	text := fmt.Sprintf("⚙ <b>Your Settings</b>\n\n📦 Dump Channel ID:\n<code>%s</code>", channel)

	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Set Dump Channel", cbSetDump),
		),
	)
	_, err = b.client.Send(out)
	return err
}

func (b *Bot) handleHealth(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.health.Check(ctx); err != nil {
		b.log.Error().Err(err).Msg("health command check failed")
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Something is wrong!\n%s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, "✅ Bot is running!\n✅ Database connection OK!")
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.client.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error().Err(err).Msg("callback ack")
	}

	if cb.Data != cbSetDump {
		return nil
	}

	b.log.Info().Int64("user", cb.From.ID).Msg("set dump channel requested")

	// Swap the settings message for the forced-reply prompt.
	if _, err := b.client.Request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)); err != nil {
		b.log.Error().Err(err).Msg("delete settings message")
	}

	text := "Send your " + promptMarker + "\n\n" +
		"Example:\n<code>-1001234567890</code>\n\n" +
		"⚠ The bot must be an admin in that channel."

	out := tgbotapi.NewMessage(cb.Message.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	_, err := b.client.Send(out)
	return err
}

func (b *Bot) handleConfigSubmission(ctx context.Context, msg *tgbotapi.Message) error {
	channelID, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "❌ Invalid channel ID. Send numbers only.")
	}

	if err := b.registry.SetDumpChannel(ctx, msg.From.ID, channelID); err != nil {
		b.log.Error().Err(err).Int64("user", msg.From.ID).Msg("save dump channel")
		return b.sendText(msg.Chat.ID, "❌ Failed to save your dump channel. Try again later.")
	}

	b.log.Info().Int64("user", msg.From.ID).Int64("channel", channelID).Msg("dump channel saved")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Dump channel saved for you:\n<code>%d</code>", channelID))
}

func (b *Bot) handleRelay(ctx context.Context, msg *tgbotapi.Message, dest int64) error {
	if err := b.relay.Relay(ctx, msg.Chat.ID, msg.MessageID, dest); err != nil {
		b.log.Error().Err(err).
			Int64("user", msg.From.ID).
			Int64("dest", dest).
			Msg("relay failed")
		return b.sendText(msg.Chat.ID, relayFailureText)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.client.Send(msg)
	return err
}

func escape(s string) string {
	return html.EscapeString(s)
}
