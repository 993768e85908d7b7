// README: Inline keyboard callbacks for offers, confirmation, payment, completion and rating.
package bot

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/logger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/ledger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

// callback is a decoded button press.
type callback struct {
	id        string
	chat      types.TelegramID
	from      types.TelegramID
	username  string
	messageID int
	action    notify.Action
}

func (c callback) orderID() types.ID {
	return types.ID(c.action.Arg(0))
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}
	action, err := notify.Decode(q.Data)
	if err != nil {
		logger.From(ctx, b.logger).Warn("Ignoring malformed callback", zap.String("data", q.Data))
		b.answer(ctx, q.ID, "")
		return
	}
	cb := callback{
		id:        q.ID,
		chat:      types.TelegramID(q.Message.Chat.ID),
		from:      types.TelegramID(q.From.ID),
		username:  q.From.UserName,
		messageID: q.Message.MessageID,
		action:    action,
	}
	b.answer(ctx, cb.id, b.route(ctx, cb))
}

// route runs the action and returns the toast shown to the presser.
func (b *Bot) route(ctx context.Context, cb callback) string {
	switch cb.action.Verb {
	case notify.ActionClaim:
		return b.onClaim(ctx, cb)
	case notify.ActionDecline:
		if err := b.orders.Decline(ctx, cb.orderID(), cb.from); err != nil {
			return replyFor(err)
		}
		b.edit(ctx, cb.messageID, notify.Message{ChatID: cb.chat, Text: notify.TextDeclined})
	case notify.ActionConfirm:
		b.onConfirm(ctx, cb)
	case notify.ActionPay:
		b.confirmPayment(ctx, cb.chat, types.ID(cb.action.Arg(0)))
	case notify.ActionWriteOff:
		return b.onWriteOff(ctx, cb)
	case notify.ActionCompleteAsk:
		msg, err := b.orders.PromptCompletion(ctx, cb.orderID(), cb.from)
		if err != nil {
			return replyFor(err)
		}
		b.send(ctx, msg)
	case notify.ActionCompleteYes:
		if err := b.orders.Complete(ctx, cb.orderID(), cb.from); err != nil {
			return replyFor(err)
		}
		b.edit(ctx, cb.messageID, notify.Message{ChatID: cb.chat, Text: notify.TextCompleted})
	case notify.ActionCompleteNo:
		o, err := b.orders.Get(ctx, cb.orderID())
		if err != nil {
			return replyFor(err)
		}
		b.edit(ctx, cb.messageID, notify.TripActive(cb.chat, o.Card()))
	case notify.ActionRate:
		return b.onRate(ctx, cb)
	case notify.ActionOrderType:
		t := types.OrderType(cb.action.Arg(0))
		if !t.Valid() {
			return replyFor(order.ErrBadRequest)
		}
		b.beginOrder(ctx, cb.chat, t)
	case notify.ActionTariff:
		if cb.action.Arg(0) == "" {
			b.showRiderTariff(ctx, cb.chat, cb.from, cb.username)
			return ""
		}
		r, err := b.riders.SetTariff(ctx, cb.from, types.Tariff(cb.action.Arg(0)))
		if err != nil {
			return replyFor(err)
		}
		b.edit(ctx, cb.messageID, tariffMenu(cb.chat, notify.ActionTariff, r.Tariff))
		return textTariffChanged
	case notify.ActionDriverTariff:
		if cb.action.Arg(0) == "" {
			b.showDriverTariff(ctx, cb.chat, cb.from)
			return ""
		}
		if _, err := b.drivers.RequestTariff(ctx, cb.from, types.Tariff(cb.action.Arg(0))); err != nil {
			return replyFor(err)
		}
		b.edit(ctx, cb.messageID, notify.Message{ChatID: cb.chat, Text: textTariffRequest})
	case notify.ActionShift:
		b.toggleShift(ctx, cb.chat, cb.from)
	case notify.ActionProducts:
		b.showProducts(ctx, cb.chat)
	case notify.ActionBuy, notify.ActionBuyWriteOff:
		return b.onBuy(ctx, cb)
	case notify.ActionStats:
		b.showStats(ctx, cb.chat, cb.from)
	default:
		logger.From(ctx, b.logger).Warn("Unknown callback action", zap.String("verb", cb.action.Verb))
	}
	return ""
}

func (b *Bot) answer(ctx context.Context, id, text string) {
	if err := b.messenger.AnswerCallback(ctx, id, text); err != nil {
		logger.From(ctx, b.logger).Debug("Failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) onClaim(ctx context.Context, cb callback) string {
	outcome, err := b.orders.Claim(ctx, cb.orderID(), cb.from)
	if errors.Is(err, order.ErrAlreadyTaken) {
		b.edit(ctx, cb.messageID, notify.Message{ChatID: cb.chat, Text: notify.TextAlreadyTaken})
		return notify.TextAlreadyTaken
	}
	if err != nil {
		return replyFor(err)
	}
	if outcome == order.ClaimAlreadyHeld {
		return notify.TextClaimHeld
	}
	b.edit(ctx, cb.messageID, notify.Message{ChatID: cb.chat, Text: notify.TextClaimSent})
	return ""
}

// onConfirm accepts the driver and sends the rider a payment link, with a
// write-off option when the rider has points.
func (b *Bot) onConfirm(ctx context.Context, cb callback) {
	r, err := b.riders.Register(ctx, cb.from, cb.username)
	if err != nil {
		b.fail(ctx, cb.chat, "confirm_driver", err)
		return
	}
	o, err := b.orders.ConfirmDriver(ctx, cb.orderID(), cb.from)
	if err != nil {
		b.fail(ctx, cb.chat, "confirm_driver", err)
		return
	}
	intent, err := b.ledger.CreatePayment(ctx, ledger.CreatePaymentCommand{PayerID: r.ID, OrderID: o.ID})
	if err != nil {
		b.fail(ctx, cb.chat, "create_payment", err)
		return
	}
	writeOff := ""
	if r.Points > 0 {
		writeOff = notify.Encode(notify.ActionWriteOff, string(o.ID))
	}
	b.edit(ctx, cb.messageID, notify.Message{ChatID: cb.chat, Text: notify.OrderInfo(o.Card())})
	b.send(ctx, paymentOffer(cb.chat, intent, writeOff))
}

func (b *Bot) onWriteOff(ctx context.Context, cb callback) string {
	r, err := b.riders.Register(ctx, cb.from, cb.username)
	if err != nil {
		return replyFor(err)
	}
	if r.Points <= 0 {
		return replyFor(ledger.ErrInsufficientPoints)
	}
	d := Draft{Step: StepWriteOff, OrderID: cb.orderID()}
	b.saveAndReply(ctx, cb.chat, d, notify.TextEnterPoints+"\n\n"+pointsText(r.Points))
	return ""
}

func (b *Bot) onRate(ctx context.Context, cb callback) string {
	score, err := strconv.Atoi(cb.action.Arg(1))
	if err != nil {
		return replyFor(order.ErrBadRequest)
	}
	if _, err := b.reviews.Submit(ctx, cb.orderID(), cb.from, score); err != nil {
		return replyFor(err)
	}
	b.edit(ctx, cb.messageID, notify.Message{ChatID: cb.chat, Text: notify.TextThanksForRating})
	return ""
}

func (b *Bot) onBuy(ctx context.Context, cb callback) string {
	id := types.ID(cb.action.Arg(0))
	if _, err := b.market.Available(ctx, id); err != nil {
		return replyFor(err)
	}
	d := Draft{
		Step:      StepProductAddress,
		ProductID: id,
		WriteOff:  cb.action.Verb == notify.ActionBuyWriteOff,
	}
	b.saveAndReply(ctx, cb.chat, d, textAskAddress)
	return ""
}
