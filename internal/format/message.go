package format

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len calculates the UTF-16 length of a string
// This is required because Telegram uses UTF-16 code units for entity offsets/lengths
func UTF16Len(s string) int {
	length := 0
	for _, r := range s {
		if r >= 0x10000 {
			length += 2
		} else {
			length++
		}
	}
	return length
}

// Builder assembles a message and its entities. User-supplied text is added
// verbatim, so characters like * or _ in a reminder never break formatting.
type Builder struct {
	sb       strings.Builder
	offset   int
	entities []tgbotapi.MessageEntity
}

func (b *Builder) Text(s string) *Builder {
	b.sb.WriteString(s)
	b.offset += UTF16Len(s)
	return b
}

func (b *Builder) Bold(s string) *Builder   { return b.styled("bold", s) }
func (b *Builder) Italic(s string) *Builder { return b.styled("italic", s) }
func (b *Builder) Code(s string) *Builder   { return b.styled("code", s) }

func (b *Builder) styled(kind, s string) *Builder {
	if s == "" {
		return b
	}
	n := UTF16Len(s)
	b.entities = append(b.entities, tgbotapi.MessageEntity{Type: kind, Offset: b.offset, Length: n})
	b.sb.WriteString(s)
	b.offset += n
	return b
}

func (b *Builder) Result() ParseResult {
	return ParseResult{Text: b.sb.String(), Entities: b.entities}
}

// Message turns a result into a send config for chatID.
func (r ParseResult) Message(chatID int64) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	msg.Entities = r.Entities
	return msg
}

// Len is the UTF-16 length of the text written so far.
func (b *Builder) Len() int {
	return b.offset
}
