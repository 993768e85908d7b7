// README: Messaging contract used by every flow that talks to Telegram chats.
package notify

import (
	"context"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

// Button is either a callback button (Data) or a link button (URL).
type Button struct {
	Text string
	Data string
	URL  string
}

func CallbackButton(text, data string) Button { return Button{Text: text, Data: data} }
func LinkButton(text, url string) Button      { return Button{Text: text, URL: url} }

// Message is HTML text with an optional inline keyboard, one slice per row.
type Message struct {
	ChatID  types.TelegramID
	Text    string
	Buttons [][]Button
}

// Row is a convenience for a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

type Messenger interface {
	// Send delivers msg and returns the id of the created message.
	Send(ctx context.Context, msg Message) (int, error)
	// Edit replaces text and keyboard of an existing message. An empty
	// keyboard removes the buttons.
	Edit(ctx context.Context, messageID int, msg Message) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
