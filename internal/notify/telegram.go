package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends due-review reminders over Telegram. User ids double
// as chat ids.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramNotifier creates a notifier from a bot token.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

// SendReminder tells the user how many items are waiting for review.
func (n *TelegramNotifier) SendReminder(userID int64, dueCount int) error {
	text := fmt.Sprintf("You have %d items ready for review. Time for a quick session! 頑張って!", dueCount)
	if dueCount == 1 {
		text = "You have 1 item ready for review. Time for a quick session! 頑張って!"
	}
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to %d: %w", userID, err)
	}
	return nil
}
