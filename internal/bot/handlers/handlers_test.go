package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindline/internal/config"
	"github.com/hray3182/remindline/internal/repository"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		t.Fatal("no reply sent")
	}
	return f.texts[len(f.texts)-1]
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) Notify() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	h      *Handlers
	out    *fakeSender
	notify *fakeNotifier
	stores *repository.Stores
}

const adminID = 99

// Friday 2026-10-16 10:00 in Moscow.
var testNow = time.Date(2026, time.October, 16, 7, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores, err := repository.Open(context.Background(), "sqlite://:memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(stores.Close)

	cfg := &config.Config{DefaultTimezone: "Europe/Moscow", AdminIDs: []int64{adminID}}
	out, notify := &fakeSender{}, &fakeNotifier{}
	h := New(out, &Repositories{Reminder: stores.Reminders, Settings: stores.Settings}, notify, cfg, zerolog.Nop())
	h.now = func() time.Time { return testNow }
	return &fixture{h: h, out: out, notify: notify, stores: stores}
}

func message(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: userID},
		From: &tgbotapi.User{ID: userID},
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func (f *fixture) send(t *testing.T, userID int64, text string) string {
	t.Helper()
	msg := message(userID, text)
	if msg.IsCommand() {
		f.h.HandleCommand(context.Background(), msg)
	} else {
		f.h.HandleMessage(context.Background(), msg)
	}
	return f.out.last(t)
}

func TestCreateReminderFromText(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	reply := f.send(t, 1, "Remind me to call mom at 19:00")
	if !strings.Contains(reply, "Reminder created") || !strings.Contains(reply, "call mom") || !strings.Contains(reply, "removed once sent") {
		t.Fatalf("reply = %q", reply)
	}

	stored, err := f.stores.Reminders.ListActiveByOwner(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d reminders, want 1", len(stored))
	}
	if stored[0].Message != "call mom" || stored[0].TimeField != "2026-10-16 19:00" || !stored[0].IsOnce() {
		t.Fatalf("stored = %+v", stored[0])
	}
	if f.notify.count() != 0 {
		t.Fatal("scheduler notified for a reminder that is not due")
	}
}

func TestCreateReminderAlreadyDueNotifies(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if reply := f.send(t, 1, "remind me stretch every day at 09:00"); strings.Contains(reply, "removed once sent") {
		t.Fatalf("recurring reply = %q", reply)
	}
	if f.notify.count() != 1 {
		t.Fatalf("notify calls = %d, want 1", f.notify.count())
	}
}

func TestCreateReminderRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no prefix", "hello there", "To create a reminder"},
		{"unrecognised time", "remind me to water plants someday", "could not recognise"},
		{"invalid time", "remind me to sleep at 25:00", "Invalid time"},
		{"invalid date", "remind me party 31.02 at 10:00", "date does not exist"},
		{"empty body", "remind me at 10:00", "could not find the reminder text"},
		{"zero count", "remind me drink 0 times a day", "at least 1"},
		{"remind without args", "/remind", "Usage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			if reply := f.send(t, 1, tt.text); !strings.Contains(reply, tt.want) {
				t.Fatalf("reply = %q, want it to contain %q", reply, tt.want)
			}
			stored, err := f.stores.Reminders.ListByOwner(context.Background(), 1, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(stored) != 0 {
				t.Fatalf("rejected message stored %d reminders", len(stored))
			}
		})
	}
}

func TestListAndDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.send(t, 1, "/remind stretch every day at 09:00")
	f.send(t, 1, "remind me water 3 times a day")
	f.send(t, 2, "remind me other user at 12:00")

	reply := f.send(t, 1, "/list")
	for _, want := range []string{"1. stretch", "every day at 09:00", "Next: Sat 17.10.2026 09:00", "2. water", "3 times a day"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("/list reply %q missing %q", reply, want)
		}
	}
	if strings.Contains(reply, "other user") {
		t.Fatal("/list shows another owner's reminder")
	}

	if reply := f.send(t, 1, "/delete 5"); !strings.Contains(reply, "No reminder") {
		t.Fatalf("/delete 5 = %q", reply)
	}
	if reply := f.send(t, 1, "/delete two"); !strings.Contains(reply, "must be a number") {
		t.Fatalf("/delete two = %q", reply)
	}
	if reply := f.send(t, 1, "/delete 1"); !strings.Contains(reply, "#1 deleted") {
		t.Fatalf("/delete 1 = %q", reply)
	}

	left, err := f.stores.Reminders.ListActiveByOwner(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Message != "water" {
		t.Fatalf("remaining = %+v", left)
	}
}

func TestListEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if reply := f.send(t, 1, "/list"); !strings.Contains(reply, "no active reminders") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestTimezone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if reply := f.send(t, 1, "/timezone"); !strings.Contains(reply, "Europe/Moscow") || !strings.Contains(reply, "10:00:00 16.10.2026") {
		t.Fatalf("/timezone = %q", reply)
	}
	if reply := f.send(t, 1, "/timezone Mars/Olympus"); !strings.Contains(reply, "Unknown timezone") {
		t.Fatalf("bad zone reply = %q", reply)
	}
	if reply := f.send(t, 1, "/timezone Asia/Tokyo"); !strings.Contains(reply, "Asia/Tokyo") || !strings.Contains(reply, "16:00:00") {
		t.Fatalf("set zone reply = %q", reply)
	}

	tz, err := f.stores.Settings.GetTimezone(ctx, 1)
	if err != nil || tz != "Asia/Tokyo" {
		t.Fatalf("GetTimezone = %q, %v", tz, err)
	}

	// 16:00 in Tokyo, so 09:00 rolls over to tomorrow.
	f.send(t, 1, "remind me yoga at 09:00")
	stored, err := f.stores.Reminders.ListActiveByOwner(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0].TimeField != "2026-10-17 09:00" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestTimezoneChangeKeepsOneOffInstant(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.send(t, 1, "remind me to call mom at 19:00")
	f.send(t, 1, "remind me stretch every day at 09:00")
	f.send(t, 2, "remind me other user at 19:00")

	reply := f.send(t, 1, "/timezone Asia/Tokyo")
	if !strings.Contains(reply, "1 one-off reminder(s)") {
		t.Fatalf("set zone reply = %q", reply)
	}

	stored, err := f.stores.Reminders.ListActiveByOwner(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, r := range stored {
		got[r.Message] = r.TimeField
	}
	// 19:00 in Moscow is 01:00 the next day in Tokyo.
	if got["call mom"] != "2026-10-17 01:00" || got["stretch"] != "09:00" {
		t.Fatalf("stored times = %v", got)
	}

	other, err := f.stores.Reminders.ListActiveByOwner(ctx, 2)
	if err != nil || len(other) != 1 || other[0].TimeField != "2026-10-16 19:00" {
		t.Fatalf("other owner = %+v, %v", other, err)
	}

	if reply := f.send(t, 1, "/timezone Asia/Tokyo"); strings.Contains(reply, "one-off") {
		t.Fatalf("same zone reply = %q", reply)
	}
}

func TestTestCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	reply := f.send(t, 1, "/test")
	if !strings.Contains(reply, "Test reminder created") {
		t.Fatalf("reply = %q", reply)
	}
	stored, err := f.stores.Reminders.ListActiveByOwner(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0].TimeField != "2026-10-16 10:01" || stored[0].Message != testMessage {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestDebugAndAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if reply := f.send(t, 1, "/debug"); !strings.Contains(reply, "no reminders") {
		t.Fatalf("empty /debug = %q", reply)
	}

	f.send(t, 1, "remind me stretch every day at 09:00")
	f.send(t, 2, "remind me water at 12:00")

	reply := f.send(t, 1, "/debug")
	if !strings.Contains(reply, "stretch") || !strings.Contains(reply, "Last sent: never") || strings.Contains(reply, "water") {
		t.Fatalf("/debug = %q", reply)
	}
	if !strings.Contains(reply, "Rule: FREQ=DAILY") || !strings.Contains(reply, "BYHOUR=9") {
		t.Fatalf("/debug reply %q has no recurrence rule", reply)
	}

	if reply := f.send(t, 1, "/admin"); !strings.Contains(reply, "Unknown command") {
		t.Fatalf("/admin for a regular user = %q", reply)
	}
	reply = f.send(t, adminID, "/admin")
	for _, want := range []string{"All reminders", "stretch", "water", "User: 2"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("/admin reply %q missing %q", reply, want)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if reply := f.send(t, 1, "/memo buy milk"); !strings.Contains(reply, "Unknown command") {
		t.Fatalf("reply = %q", reply)
	}
	if reply := f.send(t, 1, "/help"); !strings.Contains(reply, "/timezone") {
		t.Fatalf("/help = %q", reply)
	}
}
