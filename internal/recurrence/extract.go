package recurrence

import (
	"regexp"
	"strings"
	"time"
)

var (
	reRemindPrefix = regexp.MustCompile(`(?i)^\s*remind\s+me\b(?:\s+to\b)?[\s,:]*`)
	reLeadingTo    = regexp.MustCompile(`(?i)^to\s+`)
	reSpaces       = regexp.MustCompile(`\s+`)
)

// Result is what message intake gets back for a recognised reminder.
type Result struct {
	Spec Spec
	Body string
}

// StripTimePhrase removes the time expression from original and returns the
// remaining text. Phrases of the given kind are removed first, then every
// table entry in parse order, so a recurring phrase is never left half
// stripped by a shorter one-shot pattern.
func StripTimePhrase(original string, kind Kind) string {
	text := original
	for _, group := range [][]pattern{recurringPatterns, oncePatterns} {
		for _, p := range group {
			if p.kind == kind {
				text = p.strip.ReplaceAllString(text, " ")
			}
		}
	}
	for _, group := range [][]pattern{recurringPatterns, oncePatterns} {
		for _, p := range group {
			text = p.strip.ReplaceAllString(text, " ")
		}
	}
	text = reSpaces.ReplaceAllString(text, " ")
	return strings.Trim(text, " ,;:-")
}

// ParseAndExtract turns a raw "remind me ..." message into a Spec and the
// reminder body. now carries the owner's location.
func ParseAndExtract(raw string, now time.Time) (Result, error) {
	text := reRemindPrefix.ReplaceAllString(raw, "")
	spec, err := Parse(text, now)
	if err != nil {
		return Result{}, err
	}
	body := reLeadingTo.ReplaceAllString(StripTimePhrase(text, spec.Kind), "")
	if body == "" {
		return Result{}, ErrEmptyBody
	}
	return Result{Spec: spec, Body: body}, nil
}

// HasRemindPrefix reports whether a chat message asks for a reminder.
func HasRemindPrefix(text string) bool {
	return reRemindPrefix.MatchString(text)
}
