// README: In-memory Messenger that records deliveries for tests.
package notifytest

import (
	"context"
	"errors"
	"sync"

	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

var ErrUnreachable = errors.New("chat unreachable")

type Edit struct {
	MessageID int
	Message   notify.Message
}

// Recorder implements notify.Messenger. Chats listed in Fail reject sends.
type Recorder struct {
	mu      sync.Mutex
	nextID  int
	sent    []notify.Message
	edits   []Edit
	answers []string
	Fail    map[types.TelegramID]bool
}

func New() *Recorder {
	return &Recorder{Fail: map[types.TelegramID]bool{}}
}

func (r *Recorder) Send(_ context.Context, msg notify.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[msg.ChatID] {
		return 0, ErrUnreachable
	}
	r.nextID++
	r.sent = append(r.sent, msg)
	return r.nextID, nil
}

func (r *Recorder) Edit(_ context.Context, messageID int, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, Edit{MessageID: messageID, Message: msg})
	return nil
}

func (r *Recorder) AnswerCallback(_ context.Context, _ string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, text)
	return nil
}

func (r *Recorder) Sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.sent...)
}

// SentTo returns messages delivered to chat in order.
func (r *Recorder) SentTo(chat types.TelegramID) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.sent {
		if m.ChatID == chat {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Edits() []Edit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edit(nil), r.edits...)
}

func (r *Recorder) Answers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.answers...)
}
