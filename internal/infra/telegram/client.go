package telegram

import (
	"fmt"

	"gopkg.in/telebot.v3"
)

// maxMessageRunes is Telegram's limit for a single text message.
const maxMessageRunes = 4096

// BotNotifier implements domain telegram.Notifier on top of a telebot bot.
type BotNotifier struct {
	bot *telebot.Bot
}

func NewBotNotifier(b *telebot.Bot) *BotNotifier {
	return &BotNotifier{bot: b}
}

// Notify sends text to chatID, split into several messages when it is too long.
func (n *BotNotifier) Notify(chatID int64, text string) error {
	chat := &telebot.Chat{ID: chatID}
	opts := &telebot.SendOptions{DisableWebPagePreview: true}
	for i, part := range splitMessage(text, maxMessageRunes) {
		if _, err := n.bot.Send(chat, part, opts); err != nil {
			return fmt.Errorf("send telegram message part %d: %w", i+1, err)
		}
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
