package recurrence

import (
	"testing"
	"time"
)

func ptr(t time.Time) *time.Time { return &t }

func TestIsDueBoundary(t *testing.T) {
	t.Parallel()
	s := Daily(TimeOfDay{9, 0})

	onTime := time.Date(2026, time.October, 16, 9, 0, 0, 0, msk)
	if !IsDue(s, nil, onTime, msk, 0) {
		t.Fatal("expected daily reminder to be due exactly at 09:00:00")
	}
	early := time.Date(2026, time.October, 16, 8, 59, 59, 0, msk)
	if IsDue(s, nil, early, msk, 0) {
		t.Fatal("daily reminder must not be due at 08:59:59")
	}
}

func TestIsDueOncePerDay(t *testing.T) {
	t.Parallel()
	s := Daily(TimeOfDay{9, 0})
	last := at(2026, time.October, 16, 9, 0)

	if IsDue(s, &last, at(2026, time.October, 16, 9, 30), msk, 0) {
		t.Fatal("second delivery on the same day")
	}
	if IsDue(s, &last, at(2026, time.October, 16, 23, 59), msk, 0) {
		t.Fatal("second delivery late on the same day")
	}
	if !IsDue(s, &last, at(2026, time.October, 17, 9, 0), msk, 0) {
		t.Fatal("expected delivery the next day")
	}
	// A missed window is caught up later the same day.
	if !IsDue(s, ptr(at(2026, time.October, 15, 9, 0)), at(2026, time.October, 16, 15, 0), msk, 0) {
		t.Fatal("expected late catch-up delivery")
	}
}

func TestIsDueDayGating(t *testing.T) {
	t.Parallel()
	saturday := at(2026, time.October, 17, 10, 0)
	friday := at(2026, time.October, 16, 10, 0)
	thursday := at(2026, time.October, 22, 14, 0)
	nine := TimeOfDay{9, 0}

	tests := []struct {
		name string
		spec Spec
		now  time.Time
		want bool
	}{
		{name: "weekdays on saturday", spec: Weekdays(nine), now: saturday, want: false},
		{name: "weekdays on friday", spec: Weekdays(nine), now: friday, want: true},
		{name: "weekends on saturday", spec: Weekends(nine), now: saturday, want: true},
		{name: "weekends on friday", spec: Weekends(nine), now: friday, want: false},
		{name: "weekly thursday on thursday", spec: WeeklyOn(3, TimeOfDay{14, 0}), now: thursday, want: true},
		{name: "weekly thursday on friday", spec: WeeklyOn(3, TimeOfDay{14, 0}), now: friday, want: false},
		{name: "weekly sunday on saturday", spec: WeeklyOn(6, nine), now: saturday, want: false},
	}
	for _, tt := range tests {
		if got := IsDue(tt.spec, nil, tt.now, msk, 0); got != tt.want {
			t.Fatalf("%s: IsDue = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsDueOnce(t *testing.T) {
	t.Parallel()
	s := Once(at(2026, time.October, 16, 18, 30))

	if IsDue(s, nil, at(2026, time.October, 16, 18, 29), msk, 0) {
		t.Fatal("once reminder due before its time")
	}
	if !IsDue(s, nil, at(2026, time.October, 16, 18, 30), msk, 0) {
		t.Fatal("once reminder not due at its time")
	}
	if !IsDue(s, nil, at(2026, time.October, 19, 8, 0), msk, 0) {
		t.Fatal("overdue once reminder not due")
	}
	if IsDue(s, ptr(at(2026, time.October, 16, 18, 30)), at(2026, time.October, 16, 18, 31), msk, 0) {
		t.Fatal("delivered once reminder due again")
	}
}

func TestIsDueTimesDailyQuota(t *testing.T) {
	t.Parallel()
	s := TimesDaily(3)
	now := at(2026, time.October, 16, 15, 0)
	lastToday := at(2026, time.October, 16, 14, 0)

	tests := []struct {
		name      string
		last      *time.Time
		delivered int
		want      bool
	}{
		{name: "never delivered", last: nil, delivered: 0, want: true},
		{name: "two of three", last: &lastToday, delivered: 2, want: true},
		{name: "quota reached", last: &lastToday, delivered: 3, want: false},
		{name: "new day", last: ptr(at(2026, time.October, 15, 22, 0)), delivered: 0, want: true},
	}
	for _, tt := range tests {
		if got := IsDue(s, tt.last, now, msk, tt.delivered); got != tt.want {
			t.Fatalf("%s: IsDue = %v, want %v", tt.name, got, tt.want)
		}
	}

	if IsDue(Spec{Kind: KindTimesDaily}, nil, now, msk, 0) {
		t.Fatal("zero quota must never be due")
	}
}

func TestIsDueTimesWeeklyQuota(t *testing.T) {
	t.Parallel()
	s := TimesWeekly(2, TimeOfDay{9, 0})
	monday := at(2026, time.October, 19, 9, 0)
	wednesday := at(2026, time.October, 21, 9, 0)
	thursday := at(2026, time.October, 22, 9, 0)
	nextMonday := at(2026, time.October, 26, 9, 0)

	if !IsDue(s, nil, monday, msk, 0) {
		t.Fatal("first weekly delivery not due")
	}
	if IsDue(s, &monday, monday.Add(time.Hour), msk, 1) {
		t.Fatal("weekly quota delivered twice on one day")
	}
	if !IsDue(s, &monday, wednesday, msk, 1) {
		t.Fatal("second weekly delivery not due")
	}
	if IsDue(s, &wednesday, thursday, msk, 2) {
		t.Fatal("weekly quota exceeded")
	}
	if !IsDue(s, &wednesday, nextMonday, msk, 0) {
		t.Fatal("quota did not reset on the next week")
	}
	if IsDue(s, nil, monday.Add(-time.Minute), msk, 0) {
		t.Fatal("weekly delivery before its time of day")
	}
}

func TestIsDueUsesOwnerTimezone(t *testing.T) {
	t.Parallel()
	s := Daily(TimeOfDay{9, 0})
	now := time.Date(2026, time.October, 16, 6, 0, 0, 0, time.UTC) // 09:00 MSK

	if !IsDue(s, nil, now, msk, 0) {
		t.Fatal("expected due at 09:00 owner time")
	}
	if IsDue(s, nil, now, time.UTC, 0) {
		t.Fatal("unexpected due at 06:00 UTC")
	}
	if IsDue(s, nil, now, nil, 0) {
		t.Fatal("nil location must behave as UTC")
	}

	// Day boundaries follow the owner's calendar, not UTC.
	midnight := Daily(TimeOfDay{0, 0})
	last := time.Date(2026, time.October, 16, 20, 30, 0, 0, time.UTC) // 23:30 MSK on the 16th
	poll := time.Date(2026, time.October, 16, 21, 30, 0, 0, time.UTC) // 00:30 MSK on the 17th
	if !IsDue(midnight, &last, poll, msk, 0) {
		t.Fatal("expected new local day to allow delivery")
	}
	if IsDue(midnight, &last, poll, time.UTC, 0) {
		t.Fatal("same UTC day must not allow delivery")
	}
}

func TestQuotaWindow(t *testing.T) {
	t.Parallel()
	now := at(2026, time.October, 16, 10, 0)

	from, to, ok := QuotaWindow(TimesDaily(2), now, msk)
	if !ok || !from.Equal(at(2026, time.October, 16, 0, 0)) || !to.Equal(at(2026, time.October, 17, 0, 0)) {
		t.Fatalf("daily window = [%v, %v) ok=%v", from, to, ok)
	}

	from, to, ok = QuotaWindow(TimesWeekly(2, TimeOfDay{9, 0}), now, msk)
	if !ok || !from.Equal(at(2026, time.October, 12, 0, 0)) || !to.Equal(at(2026, time.October, 19, 0, 0)) {
		t.Fatalf("weekly window = [%v, %v) ok=%v", from, to, ok)
	}

	if _, _, ok := QuotaWindow(Daily(TimeOfDay{9, 0}), now, msk); ok {
		t.Fatal("daily reminders have no quota window")
	}
}
