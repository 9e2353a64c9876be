package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remindline/internal/format"
	"github.com/hray3182/remindline/internal/models"
	"github.com/hray3182/remindline/internal/recurrence"
	"github.com/hray3182/remindline/internal/repository"
	"github.com/hray3182/remindline/internal/rrule"
)

const (
	displayLayout = "Mon 02.01.2006 15:04"
	testMessage   = "🧪 Test reminder"
)

const parseHint = `❌ I could not recognise the reminder time.

Examples:
• at 15:30
• tomorrow at 10:00
• 9.10.2026 at 12:00
• 15.03 at 14:30
• every day at 09:00
• in 2 hours`

func (h *Handlers) handleRemind(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		h.sendMessage(msg.Chat.ID, "Tell me what and when.\nUsage: /remind [text] [time]\nExample: /remind call mom at 19:00")
		return
	}
	h.createReminder(ctx, msg, args)
}

func (h *Handlers) createReminder(ctx context.Context, msg *tgbotapi.Message, text string) {
	userID := msg.From.ID
	loc := h.ownerLocation(ctx, userID)
	now := h.now().In(loc)

	result, err := recurrence.ParseAndExtract(text, now)
	if err != nil {
		h.sendMessage(msg.Chat.ID, rejection(err))
		return
	}

	reminder := models.NewReminder(userID, result.Body, result.Spec)
	if err := h.repos.Reminder.Create(ctx, reminder); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to create reminder")
		h.sendMessage(msg.Chat.ID, "❌ Failed to save the reminder, please try again later.")
		return
	}
	h.log.Info().
		Int64("reminder_id", reminder.ID).
		Int64("user_id", userID).
		Str("frequency", reminder.Frequency).
		Msg("reminder created")

	var b format.Builder
	b.Bold("✅ Reminder created!").
		Text("\n\n📝 Text: " + reminder.Message).
		Text("\n⏰ Time: ").Code(reminder.TimeField).
		Text("\n🔄 Repeats: " + result.Spec.Describe()).
		Text(fmt.Sprintf("\n🆔 ID: %d", reminder.ID))
	if !result.Spec.IsRecurring() {
		b.Text("\n🗑 It is removed once sent.")
	}
	h.reply(msg.Chat.ID, b.Result())

	if recurrence.IsDue(result.Spec, nil, now, loc, 0) {
		h.scheduler.Notify()
	}
}

// rejection maps a parse failure to the reply shown to the user.
func rejection(err error) string {
	switch {
	case errors.Is(err, recurrence.ErrNotRecognized):
		return parseHint
	case errors.Is(err, recurrence.ErrEmptyBody):
		return "❌ I could not find the reminder text."
	case errors.Is(err, recurrence.ErrInvalidDate):
		return "❌ That date does not exist."
	case errors.Is(err, recurrence.ErrInvalidTime):
		return "❌ Invalid time: hours go from 0 to 23 and minutes from 0 to 59."
	case errors.Is(err, recurrence.ErrInvalidCount):
		return "❌ The repeat count must be at least 1."
	}
	return "❌ I could not create that reminder."
}

func (h *Handlers) handleList(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	reminders, err := h.repos.Reminder.ListActiveByOwner(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list reminders")
		h.sendMessage(msg.Chat.ID, "❌ Failed to load your reminders, please try again later.")
		return
	}
	if len(reminders) == 0 {
		h.sendMessage(msg.Chat.ID, "📭 You have no active reminders yet.")
		return
	}

	loc := h.ownerLocation(ctx, userID)
	now := h.now()

	var b format.Builder
	b.Bold("📋 Your reminders:").Text("\n")
	for i, r := range reminders {
		b.Text(fmt.Sprintf("\n%d. %s\n", i+1, r.Message))
		spec, err := r.Spec(loc)
		if err != nil {
			b.Text("   ⚠️ " + r.TimeField + " / " + r.Frequency + "\n")
			continue
		}
		b.Text("   🔄 " + spec.Describe() + "\n")
		next, err := rrule.NextOccurrence(spec, now, loc)
		if err != nil {
			h.log.Warn().Err(err).Int64("reminder_id", r.ID).Msg("failed to compute next occurrence")
		}
		if next != nil {
			b.Text("   ⏭ Next: " + next.Format(displayLayout) + "\n")
		}
		b.Text("   📅 Created: " + r.CreatedAt.In(loc).Format(displayLayout) + "\n")
	}
	h.reply(msg.Chat.ID, b.Result())
}

func (h *Handlers) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		h.sendMessage(msg.Chat.ID, "❌ Give the number of the reminder to delete.\nExample: /delete 1")
		return
	}
	n, err := strconv.Atoi(strings.Fields(args)[0])
	if err != nil {
		h.sendMessage(msg.Chat.ID, "❌ The reminder number must be a number.")
		return
	}

	// Numbers refer to the order shown by /list.
	reminders, err := h.repos.Reminder.ListActiveByOwner(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list reminders")
		h.sendMessage(msg.Chat.ID, "❌ Failed to delete the reminder.")
		return
	}
	if n < 1 || n > len(reminders) {
		h.sendMessage(msg.Chat.ID, "❌ No reminder with that number.")
		return
	}

	target := reminders[n-1]
	err = h.repos.Reminder.Delete(ctx, target.ID, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.sendMessage(msg.Chat.ID, "❌ No reminder with that number.")
	case err != nil:
		h.log.Error().Err(err).Int64("reminder_id", target.ID).Msg("failed to delete reminder")
		h.sendMessage(msg.Chat.ID, "❌ Failed to delete the reminder.")
	default:
		h.log.Info().Int64("reminder_id", target.ID).Int64("user_id", userID).Msg("reminder deleted")
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Reminder #%d deleted.", n))
	}
}

func (h *Handlers) handleTest(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	loc := h.ownerLocation(ctx, userID)
	at := h.now().In(loc).Add(time.Minute)

	reminder := models.NewReminder(userID, testMessage, recurrence.Once(at))
	if err := h.repos.Reminder.Create(ctx, reminder); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to create test reminder")
		h.sendMessage(msg.Chat.ID, "❌ Failed to create the test reminder.")
		return
	}

	var b format.Builder
	b.Bold("✅ Test reminder created!").
		Text(fmt.Sprintf("\n🆔 ID: %d", reminder.ID)).
		Text("\n⏰ Time: " + at.Format(displayLayout)).
		Text("\n📝 Message: " + testMessage).
		Text("\n\nExpect it within a minute or so...")
	h.reply(msg.Chat.ID, b.Result())
}
