package telegram

// Notifier delivers operator messages to a Telegram chat.
type Notifier interface {
	Notify(chatID int64, text string) error
}
