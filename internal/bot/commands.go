// README: Slash commands and step-by-step text input.
package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/KamranYsupov/TaxiDriverBot/internal/maps"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/ledger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
	"github.com/KamranYsupov/TaxiDriverBot/internal/validation"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chat := types.TelegramID(msg.Chat.ID)
	tg := types.TelegramID(msg.From.ID)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.start(ctx, chat, tg, msg.From.UserName, args)
	case "help":
		b.reply(ctx, chat, textHelp)
	case "taxi":
		b.beginOrder(ctx, chat, types.OrderTaxi)
	case "delivery":
		b.beginOrder(ctx, chat, types.OrderDelivery)
	case "cancel":
		if err := b.drafts.Clear(ctx, chat); err != nil {
			b.fail(ctx, chat, "cancel", err)
			return
		}
		b.reply(ctx, chat, textCancelled)
	case "tariff":
		b.showRiderTariff(ctx, chat, tg, msg.From.UserName)
	case "products":
		b.showProducts(ctx, chat)
	case "points":
		r, err := b.riders.Register(ctx, tg, msg.From.UserName)
		if err != nil {
			b.fail(ctx, chat, "points", err)
			return
		}
		b.reply(ctx, chat, pointsText(r.Points))
	case "driver":
		b.registerDriver(ctx, chat, tg, msg.From.UserName, args)
	case "car":
		b.submitCar(ctx, chat, tg, args)
	case "shift":
		b.toggleShift(ctx, chat, tg)
	case "driver_tariff":
		b.showDriverTariff(ctx, chat, tg)
	case "stats":
		b.showStats(ctx, chat, tg)
	default:
		b.reply(ctx, chat, textHelp)
	}
}

// start registers the rider and follows deep links from the orders channel
// and the payment provider.
func (b *Bot) start(ctx context.Context, chat, tg types.TelegramID, username, payload string) {
	if _, err := b.riders.Register(ctx, tg, username); err != nil {
		b.fail(ctx, chat, "start", err)
		return
	}
	kind, id, ok := notify.ParseStartPayload(payload)
	if !ok {
		b.send(ctx, mainMenu(chat))
		return
	}
	switch kind {
	case "order":
		outcome, err := b.orders.Claim(ctx, id, tg)
		if err != nil {
			b.fail(ctx, chat, "claim", err)
			return
		}
		b.reply(ctx, chat, claimText(outcome))
	case "payment":
		b.confirmPayment(ctx, chat, id)
	}
}

func (b *Bot) confirmPayment(ctx context.Context, chat types.TelegramID, id types.ID) {
	c, err := b.ledger.Confirm(ctx, id)
	if errors.Is(err, ledger.ErrNotPaidYet) {
		b.reply(ctx, chat, textPaymentPending)
		return
	}
	if err != nil {
		b.fail(ctx, chat, "confirm_payment", err)
		return
	}
	if c.AlreadyPaid {
		b.reply(ctx, chat, textAlreadyPaid)
	}
}

func claimText(outcome order.ClaimOutcome) string {
	if outcome == order.ClaimAlreadyHeld {
		return notify.TextClaimHeld
	}
	return notify.TextClaimSent
}

func (b *Bot) beginOrder(ctx context.Context, chat types.TelegramID, t types.OrderType) {
	if err := b.drafts.Save(ctx, chat, Draft{Step: StepOrigin, OrderType: t}); err != nil {
		b.fail(ctx, chat, "begin_order", err)
		return
	}
	b.reply(ctx, chat, notify.TextAskOrigin)
}

func (b *Bot) showRiderTariff(ctx context.Context, chat, tg types.TelegramID, username string) {
	r, err := b.riders.Register(ctx, tg, username)
	if err != nil {
		b.fail(ctx, chat, "tariff", err)
		return
	}
	b.send(ctx, tariffMenu(chat, notify.ActionTariff, r.Tariff))
}

func (b *Bot) showDriverTariff(ctx context.Context, chat, tg types.TelegramID) {
	d, err := b.drivers.ByTelegram(ctx, tg)
	if err != nil {
		b.fail(ctx, chat, "driver_tariff", err)
		return
	}
	b.send(ctx, tariffMenu(chat, notify.ActionDriverTariff, d.Tariff))
}

func (b *Bot) showProducts(ctx context.Context, chat types.TelegramID) {
	products, err := b.market.List(ctx)
	if err != nil {
		b.fail(ctx, chat, "products", err)
		return
	}
	b.send(ctx, productsMessage(chat, products))
}

func (b *Bot) registerDriver(ctx context.Context, chat, tg types.TelegramID, username, args string) {
	if args == "" {
		b.reply(ctx, chat, driverFormHelp)
		return
	}
	fields, err := splitForm(args, 3)
	if err != nil {
		b.reply(ctx, chat, driverFormHelp)
		return
	}
	_, err = b.drivers.Register(ctx, driver.RegisterCommand{
		TelegramID: tg,
		Username:   username,
		FullName:   fields[0],
		Phone:      fields[1],
		Passport:   fields[2],
	})
	if err != nil {
		b.fail(ctx, chat, "driver_register", err)
		return
	}
	b.reply(ctx, chat, textDriverCreated)
}

func (b *Bot) submitCar(ctx context.Context, chat, tg types.TelegramID, args string) {
	fields, err := splitForm(args, 3)
	if err != nil {
		b.reply(ctx, chat, carFormHelp)
		return
	}
	_, err = b.drivers.SubmitCar(ctx, driver.SubmitCarCommand{
		DriverTelegramID: tg,
		Name:             fields[0],
		Plate:            fields[1],
		VIN:              fields[2],
	})
	if err != nil {
		b.fail(ctx, chat, "car_submit", err)
		return
	}
	b.reply(ctx, chat, textCarSubmitted)
}

func (b *Bot) toggleShift(ctx context.Context, chat, tg types.TelegramID) {
	d, err := b.drivers.ByTelegram(ctx, tg)
	if err != nil {
		b.fail(ctx, chat, "shift", err)
		return
	}
	d, err = b.drivers.SetActive(ctx, tg, !d.IsActive)
	if err != nil {
		b.fail(ctx, chat, "shift", err)
		return
	}
	b.reply(ctx, chat, shiftText(d.IsActive))
}

func (b *Bot) showStats(ctx context.Context, chat, tg types.TelegramID) {
	st, err := b.orders.DailyStats(ctx, tg, b.now(), b.cfg.Location)
	if err != nil {
		b.fail(ctx, chat, "stats", err)
		return
	}
	b.reply(ctx, chat, notify.DailyStats(st.Orders, st.Income))
}

// handleInput advances the chat's draft with a text or location message.
func (b *Bot) handleInput(ctx context.Context, msg *tgbotapi.Message) {
	chat := types.TelegramID(msg.Chat.ID)
	tg := types.TelegramID(msg.From.ID)
	d, err := b.drafts.Get(ctx, chat)
	if err != nil {
		b.fail(ctx, chat, "draft", err)
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch d.Step {
	case StepOrigin:
		var point *types.Point
		if msg.Location != nil {
			point = &types.Point{Lat: msg.Location.Latitude, Lng: msg.Location.Longitude}
		} else if text == "" {
			b.reply(ctx, chat, notify.TextAskOrigin)
			return
		}
		origin, err := b.orders.ResolveOrigin(ctx, point, text)
		if err != nil {
			b.fail(ctx, chat, "resolve_origin", err)
			return
		}
		d.Origin = &origin
		d.Step = StepDestination
		b.saveAndReply(ctx, chat, d, notify.TextAskDestination)
	case StepDestination:
		if text == "" || d.Origin == nil {
			b.reply(ctx, chat, notify.TextAskDestination)
			return
		}
		b.createOrder(ctx, chat, tg, msg.From.UserName, *d.Origin, d.OrderType, text)
	case StepWriteOff:
		b.writeOff(ctx, chat, tg, msg.From.UserName, d, text)
	case StepProductAddress:
		if len([]rune(text)) < 2 {
			b.reply(ctx, chat, textAskAddress)
			return
		}
		d.Address = text
		d.Step = StepProductPhone
		b.saveAndReply(ctx, chat, d, textAskPhone)
	case StepProductPhone:
		if err := validation.Var(text, "phone", "phone"); err != nil {
			b.reply(ctx, chat, textAskPhone)
			return
		}
		d.Phone = validation.NormalizePhone(text)
		if d.WriteOff {
			d.Step = StepWriteOff
			b.saveAndReply(ctx, chat, d, notify.TextEnterPoints)
			return
		}
		b.buyProduct(ctx, chat, tg, msg.From.UserName, d)
	default:
		b.send(ctx, mainMenu(chat))
	}
}

func (b *Bot) saveAndReply(ctx context.Context, chat types.TelegramID, d Draft, text string) {
	if err := b.drafts.Save(ctx, chat, d); err != nil {
		b.fail(ctx, chat, "draft", err)
		return
	}
	b.reply(ctx, chat, text)
}

func (b *Bot) createOrder(ctx context.Context, chat, tg types.TelegramID, username string, origin maps.Address, t types.OrderType, destination string) {
	r, err := b.riders.Register(ctx, tg, username)
	if err != nil {
		b.fail(ctx, chat, "create_order", err)
		return
	}
	o, err := b.orders.Create(ctx, order.CreateCommand{
		RequesterID:         r.ID,
		RequesterTelegramID: tg,
		Type:                t,
		Tariff:              r.Tariff,
		Origin:              origin,
		DestinationText:     destination,
	})
	if err != nil {
		// Resolution errors keep the draft so the rider can retype the address.
		b.fail(ctx, chat, "create_order", err)
		return
	}
	b.clearDraft(ctx, chat)
	b.reply(ctx, chat, notify.OrderInfo(o.Card())+"\n"+notify.TextSearching)
}

func productMeta(d Draft, username string) map[string]string {
	meta := map[string]string{
		ledger.MetaAddress: d.Address,
		ledger.MetaPhone:   d.Phone,
	}
	if username != "" {
		meta[ledger.MetaUsername] = username
	}
	return meta
}

func (b *Bot) buyProduct(ctx context.Context, chat, tg types.TelegramID, username string, d Draft) {
	r, err := b.riders.Register(ctx, tg, username)
	if err != nil {
		b.fail(ctx, chat, "buy", err)
		return
	}
	intent, err := b.ledger.CreatePayment(ctx, ledger.CreatePaymentCommand{
		PayerID:   r.ID,
		ProductID: d.ProductID,
		Metadata:  productMeta(d, username),
	})
	if err != nil {
		b.fail(ctx, chat, "buy", err)
		return
	}
	b.clearDraft(ctx, chat)
	b.send(ctx, paymentOffer(chat, intent, ""))
}

func (b *Bot) writeOff(ctx context.Context, chat, tg types.TelegramID, username string, d Draft, text string) {
	points, err := ledger.ParsePoints(text)
	if err != nil {
		b.reply(ctx, chat, replyFor(err))
		return
	}
	r, err := b.riders.Register(ctx, tg, username)
	if err != nil {
		b.fail(ctx, chat, "writeoff", err)
		return
	}
	cmd := ledger.WriteOffCommand{PayerID: r.ID, OrderID: d.OrderID, ProductID: d.ProductID, Points: points}
	if d.ProductID != "" {
		cmd.Metadata = productMeta(d, username)
	}
	intent, err := b.ledger.WriteOffPoints(ctx, cmd)
	if err != nil {
		// Cap and balance errors keep the draft for another amount.
		b.fail(ctx, chat, "writeoff", err)
		return
	}
	b.clearDraft(ctx, chat)
	b.send(ctx, paymentOffer(chat, intent, ""))
}

func paymentOffer(chat types.TelegramID, intent *ledger.Intent, writeOff string) notify.Message {
	return notify.PaymentOffer(chat, intent.Payment.Amount, intent.Payment.PointsToCredit, intent.URL, writeOff)
}
