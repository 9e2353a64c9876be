package rrule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hray3182/remindline/internal/recurrence"
)

var weekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Option converts a recurring spec to an RFC 5545 rule anchored at dtstart.
// One-shot reminders and daily quotas (which have no fixed time of day)
// have no rule; ok is false for them.
func Option(spec recurrence.Spec, dtstart time.Time) (opt rrule.ROption, ok bool) {
	opt = rrule.ROption{
		Dtstart:  dtstart,
		Byhour:   []int{spec.Time.Hour},
		Byminute: []int{spec.Time.Minute},
		Bysecond: []int{0},
	}

	switch spec.Kind {
	case recurrence.KindDaily, recurrence.KindTimesWeekly:
		opt.Freq = rrule.DAILY
	case recurrence.KindWeekdays:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = weekdays[:5]
	case recurrence.KindWeekends:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = weekdays[5:]
	case recurrence.KindWeekly:
		if spec.Day < 0 || spec.Day > 6 {
			return rrule.ROption{}, false
		}
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{weekdays[spec.Day]}
	default:
		return rrule.ROption{}, false
	}
	return opt, true
}

// String returns the RRULE line for a spec ("" when it has none).
func String(spec recurrence.Spec) string {
	opt, ok := Option(spec, time.Time{})
	if !ok {
		return ""
	}
	return opt.RRuleString()
}

// NextOccurrence returns the first scheduled time strictly after "after",
// evaluated in loc. It returns nil for daily quotas and for one-shot
// reminders whose time has passed.
func NextOccurrence(spec recurrence.Spec, after time.Time, loc *time.Location) (*time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)

	if spec.Kind == recurrence.KindOnce {
		if spec.At.After(after) {
			at := spec.At.In(loc)
			return &at, nil
		}
		return nil, nil
	}

	y, m, d := local.Date()
	opt, ok := Option(spec, time.Date(y, m, d, 0, 0, 0, 0, loc))
	if !ok {
		return nil, nil
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule for %s: %w", spec.Kind, err)
	}
	next := rule.After(local, false)
	if next.IsZero() {
		return nil, nil
	}
	return &next, nil
}
