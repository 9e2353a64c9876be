package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the recurrence class of a Spec. Its values double as the
// frequency tags persisted for the fixed kinds.
type Kind string

const (
	KindOnce        Kind = "once"
	KindDaily       Kind = "daily"
	KindWeekdays    Kind = "weekdays"
	KindWeekends    Kind = "weekends"
	KindWeekly      Kind = "weekly"
	KindTimesDaily  Kind = "times_daily"
	KindTimesWeekly Kind = "times_weekly"
)

const onceLayout = "2006-01-02 15:04"

var (
	ErrNotRecognized   = errors.New("time expression not recognized")
	ErrInvalidDate     = errors.New("invalid calendar date")
	ErrInvalidTime     = errors.New("invalid time of day")
	ErrInvalidCount    = errors.New("repeat count must be at least 1")
	ErrEmptyBody       = errors.New("no reminder text")
	ErrMalformedRecord = errors.New("malformed recurrence encoding")
)

// Weekday names indexed Monday=0 .. Sunday=6. They are also the frequency
// tags of weekly reminders.
var dayNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// minutes returns the offset from midnight.
func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// ParseTimeOfDay parses "HH:MM" (single-digit hours allowed).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	tod := TimeOfDay{Hour: hour, Minute: minute}
	if !tod.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return tod, nil
}

// Spec is a parsed recurrence descriptor. Only the fields relevant to Kind
// are meaningful:
//
//	KindOnce        At
//	KindDaily       Time
//	KindWeekdays    Time
//	KindWeekends    Time
//	KindWeekly      Day, Time
//	KindTimesDaily  N
//	KindTimesWeekly N, Time
type Spec struct {
	Kind Kind
	At   time.Time
	Time TimeOfDay
	Day  int // 0=Monday .. 6=Sunday
	N    int
}

func Once(at time.Time) Spec               { return Spec{Kind: KindOnce, At: at.Truncate(time.Minute)} }
func Daily(at TimeOfDay) Spec              { return Spec{Kind: KindDaily, Time: at} }
func Weekdays(at TimeOfDay) Spec           { return Spec{Kind: KindWeekdays, Time: at} }
func Weekends(at TimeOfDay) Spec           { return Spec{Kind: KindWeekends, Time: at} }
func WeeklyOn(day int, at TimeOfDay) Spec  { return Spec{Kind: KindWeekly, Day: day, Time: at} }
func TimesDaily(n int) Spec                { return Spec{Kind: KindTimesDaily, N: n, Time: TimeOfDay{Hour: 9}} }
func TimesWeekly(n int, at TimeOfDay) Spec { return Spec{Kind: KindTimesWeekly, N: n, Time: at} }

// IsRecurring reports whether the spec fires more than once.
func (s Spec) IsRecurring() bool {
	return s.Kind != KindOnce
}

// Encode returns the persisted (time_field, frequency_tag) pair.
func (s Spec) Encode() (timeField, tag string) {
	switch s.Kind {
	case KindOnce:
		return s.At.Format(onceLayout), string(KindOnce)
	case KindWeekly:
		return s.Time.String(), dayNames[s.Day]
	case KindTimesDaily:
		return s.Time.String(), fmt.Sprintf("%d_times_daily", s.N)
	case KindTimesWeekly:
		return s.Time.String(), fmt.Sprintf("%d_times_weekly", s.N)
	default:
		return s.Time.String(), string(s.Kind)
	}
}

// Decode rebuilds a Spec from its persisted pair. Absolute timestamps are
// interpreted as wall clock in loc.
func Decode(timeField, tag string, loc *time.Location) (Spec, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	timeField = strings.TrimSpace(timeField)

	if tag == string(KindOnce) {
		at, err := time.ParseInLocation(onceLayout, timeField, loc)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: once time %q", ErrMalformedRecord, timeField)
		}
		return Once(at), nil
	}

	tod, err := ParseTimeOfDay(timeField)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: time %q", ErrMalformedRecord, timeField)
	}

	switch tag {
	case string(KindDaily):
		return Daily(tod), nil
	case string(KindWeekdays):
		return Weekdays(tod), nil
	case string(KindWeekends):
		return Weekends(tod), nil
	}
	if day := dayIndex(tag); day >= 0 {
		return WeeklyOn(day, tod), nil
	}
	if n, ok := quotaTag(tag, "_times_daily"); ok {
		s := TimesDaily(n)
		s.Time = tod
		return s, nil
	}
	if n, ok := quotaTag(tag, "_times_weekly"); ok {
		return TimesWeekly(n, tod), nil
	}
	return Spec{}, fmt.Errorf("%w: frequency %q", ErrMalformedRecord, tag)
}

func quotaTag(tag, suffix string) (int, bool) {
	num, ok := strings.CutSuffix(tag, suffix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func dayIndex(name string) int {
	for i, d := range dayNames {
		if d == name {
			return i
		}
	}
	return -1
}

// Describe renders the spec for chat replies.
func (s Spec) Describe() string {
	switch s.Kind {
	case KindOnce:
		return "once at " + s.At.Format(onceLayout)
	case KindDaily:
		return "every day at " + s.Time.String()
	case KindWeekdays:
		return "on weekdays at " + s.Time.String()
	case KindWeekends:
		return "on weekends at " + s.Time.String()
	case KindWeekly:
		return "every " + capitalize(dayNames[s.Day]) + " at " + s.Time.String()
	case KindTimesDaily:
		return fmt.Sprintf("%d %s a day", s.N, plural(s.N, "time", "times"))
	case KindTimesWeekly:
		return fmt.Sprintf("%d %s a week at %s", s.N, plural(s.N, "time", "times"), s.Time)
	}
	return string(s.Kind)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// mondayIndex converts time.Weekday (Sunday=0) to Monday=0 numbering.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
