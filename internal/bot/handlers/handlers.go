package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindline/internal/config"
	"github.com/hray3182/remindline/internal/format"
	"github.com/hray3182/remindline/internal/logging"
	"github.com/hray3182/remindline/internal/models"
	"github.com/hray3182/remindline/internal/recurrence"
	"github.com/hray3182/remindline/internal/repository"
	"github.com/hray3182/remindline/internal/transport"
)

type Repositories struct {
	Reminder repository.ReminderStore
	Settings repository.SettingsStore
}

// Notifier wakes the scheduler so a reminder that is already due does not
// wait for the next poll.
type Notifier interface {
	Notify()
}

type Handlers struct {
	api       transport.Sender
	repos     *Repositories
	scheduler Notifier
	cfg       *config.Config
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
}

func New(api transport.Sender, repos *Repositories, scheduler Notifier, cfg *config.Config, log zerolog.Logger) *Handlers {
	return &Handlers{
		api:       api,
		repos:     repos,
		scheduler: scheduler,
		cfg:       cfg,
		loc:       cfg.Location(),
		log:       logging.Component(log, "handlers"),
		now:       time.Now,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "remind":
		h.handleRemind(ctx, msg)
	case "list":
		h.handleList(ctx, msg)
	case "delete":
		h.handleDelete(ctx, msg)
	case "timezone":
		h.handleTimezone(ctx, msg)
	case "test":
		h.handleTest(ctx, msg)
	case "debug":
		h.handleDebug(ctx, msg)
	case "admin":
		h.handleAdmin(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unknown command, use /help to see what I can do.")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !recurrence.HasRemindPrefix(msg.Text) {
		h.sendMessage(msg.Chat.ID, "🤖 To create a reminder write:\n\"Remind me [text] [time]\"\n\nOr use /help for the full reference.")
		return
	}
	h.createReminder(ctx, msg, msg.Text)
}

// ownerLocation resolves the timezone the owner's reminders are parsed and
// evaluated in.
func (h *Handlers) ownerLocation(ctx context.Context, userID int64) *time.Location {
	tz, err := h.repos.Settings.GetTimezone(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to load timezone, using default")
	}
	settings := &models.UserSettings{UserID: userID, Timezone: tz}
	return settings.Location(h.loc)
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (h *Handlers) reply(chatID int64, r format.ParseResult) {
	if _, err := h.api.Send(r.Message(chatID)); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

const startText = `🤖 Welcome to the reminder bot!

I help you not forget the things that matter.

📝 Create a reminder by writing:
"Remind me [text] [time]"

Time examples:
• One-off: "at 15:30", "tomorrow at 10:00", "in 2 hours"
• A date: "9.10.2026 at 12:00", "15.03 at 14:30", "25/12 at 18:00"
• Daily: "every day at 09:00"
• Several times a day: "3 times a day"
• Weekdays or weekends: "on weekdays at 18:00", "on weekends at 10:00"
• A day of the week: "every monday at 14:00", "on fri at 16:30"

Commands:
/list - show your reminders
/delete [number] - delete a reminder
/timezone - set your timezone
/test - create a test reminder
/debug - inspect your stored reminders
/help - full reference

Start with your first reminder! 🚀`

const helpText = `📚 Reference

Create a reminder with "Remind me [text] [time]" or /remind [text] [time].

Examples:
• Remind me to call mom at 19:00
• Remind me to take pills every day at 08:00
• Remind me about the meeting tomorrow at 14:30
• Remind me to see the doctor 9.10.2026 at 12:00
• Remind me to drink water 5 times a day
• Remind me about training every monday at 18:00
• Remind me to review the week 2 times a week at 17:00

Commands:
/start - introduction
/list - your active reminders with the next occurrence
/delete [number] - delete a reminder by its list number
/timezone [zone] - show or set your timezone
/test - one-off reminder one minute from now
/debug - your last 10 stored reminders
/help - this reference

Kinds of reminders:
• One-off: fires once, then it is removed
• Daily: every day at the given time
• Quota: several times a day or a week
• Weekdays or weekends only
• A fixed day of the week`

func (h *Handlers) handleStart(_ context.Context, msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID, startText)
}

func (h *Handlers) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID, helpText)
}
