package service

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// MessageCopier is the slice of the Telegram client the relay needs.
type MessageCopier interface {
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

// Sleeper waits for the given duration. Injected so tests can fake the wait.
type Sleeper func(d time.Duration)

// Relay copies inbound messages into the user's dump channel.
type Relay struct {
	copier  MessageCopier
	limiter *rate.Limiter
	sleep   Sleeper
	log     zerolog.Logger
}

func NewRelay(copier MessageCopier, logger zerolog.Logger) *Relay {
	return &Relay{
		copier: copier,
		// Stay under Telegram's ~30 msg/s global cap.
		limiter: rate.NewLimiter(rate.Limit(20), 5),
		sleep:   time.Sleep,
		log:     logger.With().Str("component", "relay").Logger(),
	}
}

// Relay copies the message into the destination channel. When the API
// reports a rate limit with a retry-after value, it waits exactly that long
// and retries exactly once; any other failure, or a failed retry, is
// returned to the caller.
func (s *Relay) Relay(ctx context.Context, fromChatID int64, messageID int, destChannelID int64) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	err := s.copy(fromChatID, messageID, destChannelID)
	if err == nil {
		return nil
	}

	wait, ok := retryAfter(err)
	if !ok {
		return err
	}

	s.log.Warn().
		Int64("dest", destChannelID).
		Dur("wait", wait).
		Msg("rate limited, retrying after wait")

	// The wait must be honored in full; cutting it short would trip the
	// same limit again immediately.
	s.sleep(wait)

	return s.copy(fromChatID, messageID, destChannelID)
}

func (s *Relay) copy(fromChatID int64, messageID int, destChannelID int64) error {
	_, err := s.copier.CopyMessage(tgbotapi.NewCopyMessage(destChannelID, fromChatID, messageID))
	return err
}

// retryAfter extracts the wait the API asked for, if the error is a rate limit.
func retryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second, true
	}
	return 0, false
}
