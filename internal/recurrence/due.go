package recurrence

import "time"

// IsDue reports whether an occurrence of s should be delivered at now.
// last is the previous delivery (nil if never), loc the owner's timezone in
// which days and weeks are counted, and deliveredInPeriod the number of
// deliveries already recorded inside QuotaWindow (only read for quota kinds).
//
// Time-of-day comparisons are inclusive, so a poll landing exactly on the
// target minute fires, and a poll after a missed window still fires once.
func IsDue(s Spec, last *time.Time, now time.Time, loc *time.Location, deliveredInPeriod int) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	switch s.Kind {
	case KindOnce:
		return last == nil && !local.Before(s.At)
	case KindDaily:
		return onceToday(s.Time, last, local)
	case KindWeekdays:
		return mondayIndex(local.Weekday()) < 5 && onceToday(s.Time, last, local)
	case KindWeekends:
		return mondayIndex(local.Weekday()) >= 5 && onceToday(s.Time, last, local)
	case KindWeekly:
		return mondayIndex(local.Weekday()) == s.Day && onceToday(s.Time, last, local)
	case KindTimesDaily:
		if s.N < 1 {
			return false
		}
		if last == nil || dayBefore(last.In(loc), local) {
			return true
		}
		return deliveredInPeriod < s.N
	case KindTimesWeekly:
		if s.N < 1 || !onceToday(s.Time, last, local) {
			return false
		}
		if last == nil || weekStart(last.In(loc)).Before(weekStart(local)) {
			return true
		}
		return deliveredInPeriod < s.N
	}
	return false
}

// QuotaWindow returns the period over which deliveries are counted for the
// quota kinds. ok is false for every other kind, in which case the caller
// need not query the delivery log.
func QuotaWindow(s Spec, now time.Time, loc *time.Location) (from, to time.Time, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	switch s.Kind {
	case KindTimesDaily:
		from = midnight(local)
		return from, from.AddDate(0, 0, 1), true
	case KindTimesWeekly:
		from = weekStart(local)
		return from, from.AddDate(0, 0, 7), true
	}
	return time.Time{}, time.Time{}, false
}

// onceToday is the shared daily rule: the target time has been reached and
// nothing was delivered earlier on the same local date.
func onceToday(at TimeOfDay, last *time.Time, local time.Time) bool {
	if local.Hour()*60+local.Minute() < at.minutes() {
		return false
	}
	return last == nil || dayBefore(last.In(local.Location()), local)
}

// dayBefore reports whether a's calendar date precedes b's.
func dayBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Before(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// weekStart returns Monday 00:00 of t's ISO week.
func weekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-mondayIndex(t.Weekday()), 0, 0, 0, 0, t.Location())
}
