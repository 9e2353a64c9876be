package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remindline/internal/format"
)

const clockLayout = "15:04:05 02.01.2006"

var suggestedZones = []struct{ zone, city string }{
	{"Europe/Moscow", "Moscow"},
	{"Europe/Kyiv", "Kyiv"},
	{"Europe/Minsk", "Minsk"},
	{"Europe/London", "London"},
	{"America/New_York", "New York"},
	{"Asia/Tokyo", "Tokyo"},
	{"Asia/Shanghai", "Beijing"},
	{"Australia/Sydney", "Sydney"},
}

// handleTimezone shows the owner's timezone, or sets it when an IANA name is given
func (h *Handlers) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	args := strings.Fields(msg.CommandArguments())

	if len(args) == 0 {
		loc := h.ownerLocation(ctx, userID)
		var b format.Builder
		b.Bold("🕐 Your timezone: ").Text(loc.String()).
			Text("\n").Bold("🕐 Local time: ").Text(h.now().In(loc).Format(clockLayout)).
			Text("\n\n").Bold("Some zones:")
		for _, z := range suggestedZones {
			b.Text("\n• ").Code("/timezone " + z.zone).Text(" - " + z.city)
		}
		b.Text("\n\nAny IANA zone name works.")
		h.reply(msg.Chat.ID, b.Result())
		return
	}

	name := args[0]
	prev := h.ownerLocation(ctx, userID)
	loc, err := time.LoadLocation(name)
	if err != nil || strings.EqualFold(name, "local") {
		h.sendMessage(msg.Chat.ID, "❌ Unknown timezone. Send /timezone to see some valid names.")
		return
	}
	if err := h.repos.Settings.SetTimezone(ctx, userID, loc.String()); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to save timezone")
		h.sendMessage(msg.Chat.ID, "❌ Failed to save the timezone, please try again later.")
		return
	}
	h.log.Info().Int64("user_id", userID).Str("timezone", loc.String()).Msg("timezone updated")

	var b format.Builder
	b.Text("✅ Timezone set: ").Bold(loc.String()).
		Text("\n🕐 Local time: " + h.now().In(loc).Format(clockLayout))
	if moved := h.shiftOneOffs(ctx, userID, prev, loc); moved > 0 {
		b.Text(fmt.Sprintf("\n🔁 %d one-off reminder(s) keep their moment and now show the new local time.", moved))
	}
	h.reply(msg.Chat.ID, b.Result())
}

// shiftOneOffs rewrites the pending one-off reminders of userID so they keep
// the instant they were set for in prev. Recurring reminders follow the wall
// clock of whatever zone the owner is in.
func (h *Handlers) shiftOneOffs(ctx context.Context, userID int64, prev, next *time.Location) int {
	if prev.String() == next.String() {
		return 0
	}
	reminders, err := h.repos.Reminder.ListActiveByOwner(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to load reminders for timezone change")
		return 0
	}

	moved := 0
	for _, r := range reminders {
		if !r.IsOnce() {
			continue
		}
		spec, err := r.Spec(prev)
		if err != nil {
			h.log.Warn().Err(err).Int64("reminder_id", r.ID).Msg("skipping corrupt reminder on timezone change")
			continue
		}
		spec.At = spec.At.In(next)
		field, _ := spec.Encode()
		if field == r.TimeField {
			continue
		}
		if err := h.repos.Reminder.UpdateTimeField(ctx, r.ID, userID, field); err != nil {
			h.log.Error().Err(err).Int64("reminder_id", r.ID).Msg("failed to shift reminder")
			continue
		}
		moved++
	}
	return moved
}
