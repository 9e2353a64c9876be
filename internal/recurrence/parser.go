package recurrence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// hm matches an "H:MM" or "HH:MM" clock time and captures hour and minute.
const hm = `(\d{1,2}):(\d{2})\b`

// pattern is one entry of the time-expression table. match runs against
// lower-cased input during Parse; strip removes every variant of the same
// phrase from the original text during StripTimePhrase.
type pattern struct {
	name  string
	kind  Kind
	match *regexp.Regexp
	strip *regexp.Regexp
	build func(m []string, now time.Time) (Spec, error)
}

// recurringPatterns are always tried before oncePatterns: several one-shot
// phrases ("at 09:00") are substrings of recurring ones ("every day at 09:00").
// Within each group entries go from most to least specific.
var recurringPatterns = []pattern{
	{
		name:  "every day",
		kind:  KindDaily,
		match: regexp.MustCompile(`\b(?:every\s+day|daily)\s+at\s+` + hm),
		strip: regexp.MustCompile(`(?i)\b(?:every\s+day|daily)\s+at\s+\d{1,2}:\d{2}\b`),
		build: func(m []string, _ time.Time) (Spec, error) {
			tod, err := clock(m[1], m[2])
			return Daily(tod), err
		},
	},
	{
		name:  "times a day",
		kind:  KindTimesDaily,
		match: regexp.MustCompile(`\b(\d{1,3})\s+times?\s+(?:a|per)\s+day\b`),
		strip: regexp.MustCompile(`(?i)\b\d{1,3}\s+times?\s+(?:a|per)\s+day\b`),
		build: func(m []string, _ time.Time) (Spec, error) {
			n, err := count(m[1])
			return TimesDaily(n), err
		},
	},
	{
		name:  "times a week",
		kind:  KindTimesWeekly,
		match: regexp.MustCompile(`\b(\d{1,3})\s+times?\s+(?:a|per)\s+week\s+at\s+` + hm),
		strip: regexp.MustCompile(`(?i)\b\d{1,3}\s+times?\s+(?:a|per)\s+week(?:\s+at\s+\d{1,2}:\d{2}\b)?`),
		build: func(m []string, _ time.Time) (Spec, error) {
			n, err := count(m[1])
			if err != nil {
				return Spec{}, err
			}
			tod, err := clock(m[2], m[3])
			return TimesWeekly(n, tod), err
		},
	},
	{
		name:  "on weekdays",
		kind:  KindWeekdays,
		match: regexp.MustCompile(`\b(?:on\s+weekdays|every\s+weekday)\s+at\s+` + hm),
		strip: regexp.MustCompile(`(?i)\b(?:on\s+weekdays|every\s+weekday)\s+at\s+\d{1,2}:\d{2}\b`),
		build: func(m []string, _ time.Time) (Spec, error) {
			tod, err := clock(m[1], m[2])
			return Weekdays(tod), err
		},
	},
	{
		name:  "on weekends",
		kind:  KindWeekends,
		match: regexp.MustCompile(`\b(?:on\s+weekends|every\s+weekend)\s+at\s+` + hm),
		strip: regexp.MustCompile(`(?i)\b(?:on\s+weekends|every\s+weekend)\s+at\s+\d{1,2}:\d{2}\b`),
		build: func(m []string, _ time.Time) (Spec, error) {
			tod, err := clock(m[1], m[2])
			return Weekends(tod), err
		},
	},
	{
		name:  "weekday name",
		kind:  KindWeekly,
		match: regexp.MustCompile(`\b(?:on|every)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\s+at\s+` + hm),
		strip: regexp.MustCompile(`(?i)\b(?:on|every)\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\s+at\s+\d{1,2}:\d{2}\b`),
		build: weekly,
	},
	{
		name:  "weekday abbreviation",
		kind:  KindWeekly,
		match: regexp.MustCompile(`\b(?:on|every)\s+(mon|tues?|wed|thu(?:rs?)?|fri|sat|sun)\.?\s+at\s+` + hm),
		strip: regexp.MustCompile(`(?i)\b(?:on|every)\s+(?:mon|tues?|wed|thu(?:rs?)?|fri|sat|sun)\.?\s+at\s+\d{1,2}:\d{2}\b`),
		build: weekly,
	},
}

var oncePatterns = []pattern{
	{
		name:  "relative offset",
		kind:  KindOnce,
		match: regexp.MustCompile(`\bin\s+(\d{1,5})\s+(minutes?|mins?|hours?|hrs?|days?)\b`),
		strip: regexp.MustCompile(`(?i)\bin\s+\d{1,5}\s+(?:minutes?|mins?|hours?|hrs?|days?)\b`),
		build: func(m []string, now time.Time) (Spec, error) {
			n, _ := strconv.Atoi(m[1])
			switch {
			case strings.HasPrefix(m[2], "m"):
				return Once(now.Add(time.Duration(n) * time.Minute)), nil
			case strings.HasPrefix(m[2], "h"):
				return Once(now.Add(time.Duration(n) * time.Hour)), nil
			default:
				return Once(now.AddDate(0, 0, n)), nil
			}
		},
	},
	{
		name:  "date with year",
		kind:  KindOnce,
		match: regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\s+at\s+` + hm),
		strip: stripDate,
		build: datedWithYear,
	},
	{
		name:  "date",
		kind:  KindOnce,
		match: regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\s+at\s+` + hm),
		strip: stripDate,
		build: dated,
	},
	{
		name:  "slash date with year",
		kind:  KindOnce,
		match: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\s+at\s+` + hm),
		strip: stripDate,
		build: datedWithYear,
	},
	{
		name:  "slash date",
		kind:  KindOnce,
		match: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\s+at\s+` + hm),
		strip: stripDate,
		build: dated,
	},
	{
		name:  "tomorrow",
		kind:  KindOnce,
		match: regexp.MustCompile(`\btomorrow\s+at\s+` + hm),
		strip: regexp.MustCompile(`(?i)\btomorrow\s+at\s+\d{1,2}:\d{2}\b`),
		build: func(m []string, now time.Time) (Spec, error) {
			tod, err := clock(m[1], m[2])
			if err != nil {
				return Spec{}, err
			}
			y, mo, d := now.Date()
			return Once(time.Date(y, mo, d+1, tod.Hour, tod.Minute, 0, 0, now.Location())), nil
		},
	},
	{
		name:  "at time",
		kind:  KindOnce,
		match: regexp.MustCompile(`\bat\s+` + hm),
		strip: regexp.MustCompile(`(?i)\bat\s+\d{1,2}:\d{2}\b`),
		build: func(m []string, now time.Time) (Spec, error) {
			tod, err := clock(m[1], m[2])
			if err != nil {
				return Spec{}, err
			}
			y, mo, d := now.Date()
			at := time.Date(y, mo, d, tod.Hour, tod.Minute, 0, 0, now.Location())
			if !at.After(now) {
				at = at.AddDate(0, 0, 1)
			}
			return Once(at), nil
		},
	},
}

var stripDate = regexp.MustCompile(`(?i)\b\d{1,2}[./]\d{1,2}(?:[./]\d{4})?\s+at\s+\d{1,2}:\d{2}\b`)

var dayAbbrev = map[string]int{
	"mon": 0, "tue": 1, "tues": 1, "wed": 2, "thu": 3, "thur": 3, "thurs": 3,
	"fri": 4, "sat": 5, "sun": 6,
}

// Parse finds the first time expression in text and returns its Spec.
// now supplies both the reference instant and the owner's location.
func Parse(text string, now time.Time) (Spec, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, group := range [][]pattern{recurringPatterns, oncePatterns} {
		for _, p := range group {
			m := p.match.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			return p.build(m, now)
		}
	}
	return Spec{}, ErrNotRecognized
}

func weekly(m []string, _ time.Time) (Spec, error) {
	day := dayIndex(m[1])
	if day < 0 {
		day = dayAbbrev[m[1]]
	}
	tod, err := clock(m[2], m[3])
	return WeeklyOn(day, tod), err
}

func datedWithYear(m []string, now time.Time) (Spec, error) {
	tod, err := clock(m[4], m[5])
	if err != nil {
		return Spec{}, err
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	at, err := calendar(year, month, day, tod, now.Location())
	if err != nil {
		return Spec{}, err
	}
	return Once(at), nil
}

func dated(m []string, now time.Time) (Spec, error) {
	tod, err := clock(m[3], m[4])
	if err != nil {
		return Spec{}, err
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	at, err := calendar(now.Year(), month, day, tod, now.Location())
	if err != nil {
		return Spec{}, err
	}
	if at.Before(now) {
		if at, err = calendar(now.Year()+1, month, day, tod, now.Location()); err != nil {
			return Spec{}, err
		}
	}
	return Once(at), nil
}

// calendar builds a local timestamp, rejecting values time.Date would
// silently normalize (31.04, 30.02).
func calendar(year, month, day int, tod TimeOfDay, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, fmt.Errorf("%w: %02d.%02d.%d", ErrInvalidDate, day, month, year)
	}
	t := time.Date(year, time.Month(month), day, tod.Hour, tod.Minute, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %02d.%02d.%d", ErrInvalidDate, day, month, year)
	}
	return t, nil
}

func clock(h, m string) (TimeOfDay, error) {
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(m)
	tod := TimeOfDay{Hour: hour, Minute: minute}
	if !tod.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %s:%s", ErrInvalidTime, h, m)
	}
	return tod, nil
}

func count(s string) (int, error) {
	n, _ := strconv.Atoi(s)
	if n < 1 {
		return 0, ErrInvalidCount
	}
	return n, nil
}
