// README: Messenger implementation over the Telegram Bot API.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Telegram struct {
	api *tgbotapi.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return &Telegram{api: api}, nil
}

// API exposes the underlying client for the update loop.
func (t *Telegram) API() *tgbotapi.BotAPI {
	return t.api
}

func (t *Telegram) Send(ctx context.Context, msg Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cfg := tgbotapi.NewMessage(int64(msg.ChatID), msg.Text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	if kb, ok := Keyboard(msg.Buttons); ok {
		cfg.ReplyMarkup = kb
	}
	sent, err := t.api.Send(cfg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Telegram) Edit(ctx context.Context, messageID int, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cfg tgbotapi.EditMessageTextConfig
	if kb, ok := Keyboard(msg.Buttons); ok {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(int64(msg.ChatID), messageID, msg.Text, kb)
	} else {
		cfg = tgbotapi.NewEditMessageText(int64(msg.ChatID), messageID, msg.Text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	_, err := t.api.Send(cfg)
	return err
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// Keyboard converts button rows to an inline keyboard; ok is false when
// there are no buttons.
func Keyboard(rows [][]Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	var out [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(btns...))
	}
	if len(out) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}
