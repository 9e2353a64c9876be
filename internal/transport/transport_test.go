package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remindline/internal/format"
)

type fakeSender struct {
	err   error
	block chan struct{}
	sent  []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func TestDeliverSuccess(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	tg := NewTelegram(s, 10)

	msg := format.Notification("stretch", false)
	if err := tg.Deliver(context.Background(), 42, msg); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].ChatID != 42 || s.sent[0].Text != msg.Text || len(s.sent[0].Entities) != 1 {
		t.Fatalf("sent = %+v", s.sent)
	}
}

func TestDeliverClassifiesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{name: "blocked", err: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, permanent: true},
		{name: "deactivated", err: &tgbotapi.Error{Code: 403, Message: "Forbidden: user is deactivated"}, permanent: true},
		{name: "chat not found", err: &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, permanent: true},
		{name: "value error", err: tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, permanent: true},
		{name: "bad entities", err: &tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities"}, permanent: false},
		{name: "flood", err: &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 3"}, permanent: false},
		{name: "network", err: errors.New("dial tcp: connection refused"), permanent: false},
	}
	for _, tt := range tests {
		tg := NewTelegram(&fakeSender{err: tt.err}, 100)
		err := tg.Deliver(context.Background(), 1, format.Notification("x", false))
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if got := errors.Is(err, ErrUnreachable); got != tt.permanent {
			t.Fatalf("%s: errors.Is(ErrUnreachable) = %v, want %v (%v)", tt.name, got, tt.permanent, err)
		}
	}
}

func TestDeliverReportsLateSuccess(t *testing.T) {
	t.Parallel()
	s := &fakeSender{block: make(chan struct{})}
	tg := NewTelegram(s, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	go func() {
		<-ctx.Done()
		time.Sleep(30 * time.Millisecond)
		close(s.block)
	}()

	if err := tg.Deliver(ctx, 1, format.Notification("x", false)); err != nil {
		t.Fatalf("Deliver = %v, want nil for a send that completed after the deadline", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(s.sent))
	}
}

func TestDeliverRateLimitTimeoutIsTransient(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	tg := NewTelegram(s, 1)

	if err := tg.Deliver(context.Background(), 1, format.Notification("x", false)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tg.Deliver(ctx, 1, format.Notification("y", false))
	if err == nil || errors.Is(err, ErrUnreachable) {
		t.Fatalf("Deliver error = %v, want a transient rate limit error", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(s.sent))
	}
}
