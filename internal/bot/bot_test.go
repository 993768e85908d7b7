package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/ledger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify/notifytest"
)

const chatID = 5

func newTestBot(t *testing.T) (*Bot, redismock.ClientMock, *notifytest.Recorder) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	rec := notifytest.New()
	b := New(Deps{Messenger: rec, Drafts: NewDraftStore(db)}, Config{}, zap.NewNop())
	return b, mock, rec
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: chatID, UserName: "rider"},
	}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func lastText(t *testing.T, rec *notifytest.Recorder) string {
	t.Helper()
	sent := rec.SentTo(chatID)
	require.NotEmpty(t, sent)
	return sent[len(sent)-1].Text
}

func TestCancelClearsDraft(t *testing.T) {
	b, mock, rec := newTestBot(t)
	mock.ExpectDel("bot:draft:5").SetVal(1)

	b.Handle(context.Background(), textUpdate("/cancel"))

	assert.Equal(t, textCancelled, lastText(t, rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHelpCommand(t *testing.T) {
	b, _, rec := newTestBot(t)
	b.Handle(context.Background(), textUpdate("/help"))
	assert.Equal(t, textHelp, lastText(t, rec))
}

func TestTextWithoutDraftShowsMenu(t *testing.T) {
	b, mock, rec := newTestBot(t)
	mock.ExpectGet("bot:draft:5").RedisNil()

	b.Handle(context.Background(), textUpdate("привет"))

	sent := rec.SentTo(chatID)
	require.Len(t, sent, 1)
	assert.Equal(t, textWelcome, sent[0].Text)
	assert.Len(t, sent[0].Buttons, 2)
}

func TestProductAddressStep(t *testing.T) {
	b, mock, rec := newTestBot(t)
	ctx := context.Background()

	mock.ExpectGet("bot:draft:5").SetVal(`{"step":"product_address","product_id":"p1"}`)
	b.Handle(ctx, textUpdate("a"))
	assert.Equal(t, textAskAddress, lastText(t, rec))

	mock.ExpectGet("bot:draft:5").SetVal(`{"step":"product_address","product_id":"p1"}`)
	mock.ExpectSet("bot:draft:5", `{"step":"product_phone","product_id":"p1","address":"Ленина 1"}`, draftTTL).SetVal("OK")
	b.Handle(ctx, textUpdate("Ленина 1"))
	assert.Equal(t, textAskPhone, lastText(t, rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductPhoneStepWithWriteOff(t *testing.T) {
	b, mock, rec := newTestBot(t)
	ctx := context.Background()
	draft := `{"step":"product_phone","product_id":"p1","address":"Ленина 1","write_off":true}`

	mock.ExpectGet("bot:draft:5").SetVal(draft)
	b.Handle(ctx, textUpdate("не телефон"))
	assert.Equal(t, textAskPhone, lastText(t, rec))

	mock.ExpectGet("bot:draft:5").SetVal(draft)
	mock.ExpectSet("bot:draft:5",
		`{"step":"writeoff","product_id":"p1","address":"Ленина 1","phone":"+79001234567","write_off":true}`,
		draftTTL).SetVal("OK")
	b.Handle(ctx, textUpdate("+7 900 123-45-67"))
	assert.Equal(t, notify.TextEnterPoints, lastText(t, rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteOffRejectsNonNumber(t *testing.T) {
	b, mock, rec := newTestBot(t)
	mock.ExpectGet("bot:draft:5").SetVal(`{"step":"writeoff","order_id":"o1"}`)

	b.Handle(context.Background(), textUpdate("много"))

	assert.Equal(t, replyFor(ledger.ErrInvalidPoints), lastText(t, rec))
}

func TestOrderTypeCallbackStartsDraft(t *testing.T) {
	b, mock, rec := newTestBot(t)
	mock.ExpectSet("bot:draft:5", `{"step":"origin","order_type":"delivery"}`, draftTTL).SetVal("OK")

	b.Handle(context.Background(), callbackUpdate("otype:delivery"))

	assert.Equal(t, notify.TextAskOrigin, lastText(t, rec))
	assert.Equal(t, []string{""}, rec.Answers())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCallbackRejectsBadInput(t *testing.T) {
	b, _, rec := newTestBot(t)
	ctx := context.Background()

	b.Handle(ctx, callbackUpdate("otype:bus"))
	b.Handle(ctx, callbackUpdate(""))

	answers := rec.Answers()
	require.Len(t, answers, 2)
	assert.Equal(t, replyFor(order.ErrBadRequest), answers[0])
	assert.Empty(t, answers[1])
	assert.Empty(t, rec.Sent())
}

func TestClearDraftLogsRedisErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	db, mock := redismock.NewClientMock()
	b := New(Deps{Messenger: notifytest.New(), Drafts: NewDraftStore(db)}, Config{}, zap.New(core))
	mock.ExpectDel("bot:draft:5").SetErr(errors.New("redis: connection refused"))

	b.clearDraft(context.Background(), chatID)

	entries := logs.FilterMessage("Failed to clear draft").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(chatID), entries[0].ContextMap()["chat_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}
