package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remindline/internal/format"
	"github.com/hray3182/remindline/internal/models"
	"github.com/hray3182/remindline/internal/rrule"
)

const (
	debugLimit = 10
	adminLimit = 50
	// Telegram rejects messages over 4096 UTF-16 units.
	maxListingLen = 3500
)

func (h *Handlers) handleDebug(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	reminders, err := h.repos.Reminder.ListByOwner(ctx, userID, debugLimit)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to load reminders for debug")
		h.sendMessage(msg.Chat.ID, "❌ Failed to read the database.")
		return
	}
	if len(reminders) == 0 {
		h.sendMessage(msg.Chat.ID, "📭 You have no reminders in the database.")
		return
	}

	var b format.Builder
	b.Bold("🔍 Stored reminders:").Text("\n")
	h.writeRecords(&b, reminders, false)
	h.reply(msg.Chat.ID, b.Result())
}

// handleAdmin lists the newest reminders of every owner. Non-admins get the
// same reply as for an unknown command.
func (h *Handlers) handleAdmin(ctx context.Context, msg *tgbotapi.Message) {
	if !h.cfg.IsAdmin(msg.From.ID) {
		h.log.Warn().Int64("user_id", msg.From.ID).Msg("admin command refused")
		h.sendMessage(msg.Chat.ID, "Unknown command, use /help to see what I can do.")
		return
	}

	reminders, err := h.repos.Reminder.ListAll(ctx, adminLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load reminders for admin")
		h.sendMessage(msg.Chat.ID, "❌ Failed to read the database.")
		return
	}
	if len(reminders) == 0 {
		h.sendMessage(msg.Chat.ID, "📭 There are no reminders yet.")
		return
	}

	var b format.Builder
	b.Bold("🔐 All reminders:").Text("\n")
	h.writeRecords(&b, reminders, true)
	h.reply(msg.Chat.ID, b.Result())
}

func (h *Handlers) writeRecords(b *format.Builder, reminders []*models.Reminder, withOwner bool) {
	for i, r := range reminders {
		if b.Len() > maxListingLen {
			b.Text(fmt.Sprintf("\n... %d more not shown", len(reminders)-i))
			return
		}
		b.Text(fmt.Sprintf("\n🆔 ID: %d\n", r.ID))
		if withOwner {
			b.Text(fmt.Sprintf("👤 User: %d\n", r.UserID))
		}
		loc := r.Location(h.loc)
		last := "never"
		if r.LastDeliveredAt != nil {
			last = r.LastDeliveredAt.In(loc).Format(displayLayout)
		}
		b.Text("📝 Message: " + r.Message + "\n").
			Text("⏰ Time: ").Code(r.TimeField).Text("\n").
			Text("🔄 Frequency: ").Code(r.Frequency).Text("\n")
		if spec, err := r.Spec(loc); err != nil {
			b.Text("⚠️ Corrupt: " + err.Error() + "\n")
		} else if rule := rrule.String(spec); rule != "" {
			b.Text("📐 Rule: ").Code(rule).Text("\n")
		}
		b.Text(fmt.Sprintf("✅ Active: %t\n", r.Active)).
			Text("📅 Created: " + r.CreatedAt.In(loc).Format(displayLayout) + "\n").
			Text("📤 Last sent: " + last + "\n")
	}
}
