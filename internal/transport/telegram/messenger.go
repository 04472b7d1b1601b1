// Package telegram is the messaging-channel adapter: it delivers prompts and
// media over the Telegram Bot API and feeds inbound updates into the wizard
// and the seeker-side filter flow.
//
// The core never assumes delivery succeeded: state is persisted by the wizard
// before any send is attempted, and delivery failures are logged only.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger is the outbound half of the messaging channel.
type Messenger interface {
	// SendPrompt delivers a text prompt to the user.
	SendPrompt(userID int64, text string) error
	// DeliverMedia delivers an ordered media group with a caption on the
	// first item.
	DeliverMedia(userID int64, refs []string, caption string) error
}

// BotMessenger implements Messenger over the Telegram Bot API.
type BotMessenger struct {
	api *tgbotapi.BotAPI
}

// NewBotMessenger wraps an authorized bot API client.
func NewBotMessenger(api *tgbotapi.BotAPI) *BotMessenger {
	return &BotMessenger{api: api}
}

func (b *BotMessenger) SendPrompt(userID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("sendPrompt: %w", err)
	}
	return nil
}

func (b *BotMessenger) DeliverMedia(userID int64, refs []string, caption string) error {
	if len(refs) == 0 {
		return b.SendPrompt(userID, caption)
	}

	media := make([]any, 0, len(refs))
	for i, ref := range refs {
		photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(ref))
		if i == 0 {
			photo.Caption = caption
		}
		media = append(media, photo)
	}

	if _, err := b.api.SendMediaGroup(tgbotapi.NewMediaGroup(userID, media)); err != nil {
		return fmt.Errorf("deliverMedia: %w", err)
	}
	return nil
}
