package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// intent is the classified disposition of an inbound message.
type intent int

const (
	intentCommand intent = iota
	intentConfigReply
	intentIgnore
	intentAskSetup
	intentRelay
)

// promptMarker ties the forced-reply prompt to the submission answering it.
// The settings prompt embeds this text and classify matches replies on it.
const promptMarker = "Dump Channel ID"

// classify decides what to do with an inbound message. Rules are ordered,
// first match wins:
//  1. commands go to the command handlers;
//  2. a text reply to the settings prompt is a configuration submission;
//  3. content the relay cannot copy is dropped;
//  4. without a binding, plain text is silently ignored while other content
//     gets a setup hint — the asymmetry keeps casual typing quiet but tells
//     users why their file went nowhere;
//  5. everything else is relayed.
func classify(msg *tgbotapi.Message, hasBinding bool) intent {
	switch {
	case isCommand(msg):
		return intentCommand
	case isConfigReply(msg):
		return intentConfigReply
	case !isRelayableContent(msg):
		return intentIgnore
	case !hasBinding && msg.Text != "":
		return intentIgnore
	case !hasBinding:
		return intentAskSetup
	default:
		return intentRelay
	}
}

func isCommand(msg *tgbotapi.Message) bool {
	return msg.IsCommand() || strings.HasPrefix(msg.Text, "/")
}

func isConfigReply(msg *tgbotapi.Message) bool {
	if msg.Text == "" || msg.ReplyToMessage == nil {
		return false
	}
	return strings.Contains(msg.ReplyToMessage.Text, promptMarker)
}

// isRelayableContent reports whether the message carries content the relay
// copies: text, document, video, audio, photo, animation or sticker.
func isRelayableContent(msg *tgbotapi.Message) bool {
	return msg.Text != "" ||
		msg.Document != nil ||
		msg.Video != nil ||
		msg.Audio != nil ||
		len(msg.Photo) > 0 ||
		msg.Animation != nil ||
		msg.Sticker != nil
}
