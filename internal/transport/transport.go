package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/hray3182/remindline/internal/format"
)

// ErrUnreachable marks a permanent delivery failure: the user blocked the
// bot, deleted their account, or the chat no longer exists. Every other
// error returned by Deliver is transient.
var ErrUnreachable = errors.New("recipient unreachable")

// Deliverer sends a rendered message to a user.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, msg format.ParseResult) error
}

// Sender is the subset of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers through the Bot API, paced by a global rate limit.
type Telegram struct {
	api     Sender
	limiter *rate.Limiter
}

func NewTelegram(api Sender, ratePerSec int) *Telegram {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

func (t *Telegram) Deliver(ctx context.Context, userID int64, msg format.ParseResult) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limit: %w", err)
	}

	// BotAPI.Send takes no context, so the API client's HTTP timeout bounds
	// it. Its outcome is always reported: a message that went out late is
	// still a delivery and must not be retried.
	_, err := t.api.Send(msg.Message(userID))
	return classify(userID, err)
}

func classify(userID int64, err error) error {
	if err == nil {
		return nil
	}
	if code, desc, ok := apiError(err); ok && permanent(code, desc) {
		return fmt.Errorf("%w: user %d: %s", ErrUnreachable, userID, desc)
	}
	return fmt.Errorf("send to %d: %w", userID, err)
}

func apiError(err error) (code int, desc string, ok bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val.Code, val.Message, true
	}
	return 0, "", false
}

func permanent(code int, desc string) bool {
	switch code {
	case 403:
		return true
	case 400:
		d := strings.ToLower(desc)
		return strings.Contains(d, "chat not found") ||
			strings.Contains(d, "user is deactivated") ||
			strings.Contains(d, "bot was blocked")
	}
	return false
}
