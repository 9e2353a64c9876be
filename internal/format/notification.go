package format

const (
	notificationHeader = "🔔 Reminder!"
	onceFooter         = "✅ One-time reminder completed and removed."
)

// Notification renders the message delivered when a reminder fires.
func Notification(message string, once bool) ParseResult {
	var b Builder
	b.Bold(notificationHeader).Text("\n\n" + message)
	if once {
		b.Text("\n\n").Italic(onceFooter)
	}
	return b.Result()
}
