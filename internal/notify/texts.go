// README: Russian message texts and keyboards shown to riders, drivers and channels.
package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

// OrderCard is the order data printed in offers and summaries.
type OrderCard struct {
	ID            types.ID
	Type          types.OrderType
	Tariff        types.Tariff
	From          string
	To            string
	Price         int64
	TravelMinutes int
}

type DriverCard struct {
	FullName string
	Rating   *float64
	CarName  string
	Plate    string
}

func orderTypeName(t types.OrderType) string {
	if t == types.OrderDelivery {
		return "Доставка"
	}
	return "Такси"
}

func tariffName(t types.Tariff) string {
	if t == types.TariffUrgent {
		return "Срочный"
	}
	return "Стандартный"
}

func OrderInfo(o OrderCard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> (%s)\n", orderTypeName(o.Type), tariffName(o.Tariff))
	fmt.Fprintf(&b, "<b>Откуда:</b> <em>%s</em>\n", html.EscapeString(o.From))
	fmt.Fprintf(&b, "<b>Куда:</b> <em>%s</em>\n\n", html.EscapeString(o.To))
	fmt.Fprintf(&b, "<b>Стоимость:</b> <em>%d руб.</em>\n", o.Price)
	if o.TravelMinutes > 0 {
		fmt.Fprintf(&b, "<b>Примерное время поездки:</b> <em>%d мин.</em>\n", o.TravelMinutes)
	}
	return b.String()
}

// Offer is the direct offer sent to one eligible driver.
func Offer(chat types.TelegramID, o OrderCard) Message {
	return Message{
		ChatID: chat,
		Text:   "Поступил новый заказ!\n\n" + OrderInfo(o),
		Buttons: [][]Button{Row(
			CallbackButton("Взять ✅", Encode(ActionClaim, string(o.ID))),
			CallbackButton("Пропустить ❌", Encode(ActionDecline, string(o.ID))),
		)},
	}
}

// ChannelPost is the public channel announcement; claiming opens the bot
// through a start deep link.
func ChannelPost(chat types.TelegramID, o OrderCard, botLink string) Message {
	return Message{
		ChatID:  chat,
		Text:    "Поступил новый заказ!\n\n" + OrderInfo(o),
		Buttons: [][]Button{Row(LinkButton("Взять ✅", ClaimDeepLink(botLink, o.ID)))},
	}
}

const (
	claimStartPrefix   = "order_"
	paymentStartPrefix = "payment_"
)

func ClaimDeepLink(botLink string, id types.ID) string {
	return botLink + "?start=" + claimStartPrefix + string(id)
}

func PaymentDeepLink(botLink string, id types.ID) string {
	return botLink + "?start=" + paymentStartPrefix + string(id)
}

// ParseStartPayload splits a /start payload into its kind ("order",
// "payment") and id.
func ParseStartPayload(payload string) (kind string, id types.ID, ok bool) {
	switch {
	case strings.HasPrefix(payload, claimStartPrefix):
		return "order", types.ID(strings.TrimPrefix(payload, claimStartPrefix)), len(payload) > len(claimStartPrefix)
	case strings.HasPrefix(payload, paymentStartPrefix):
		return "payment", types.ID(strings.TrimPrefix(payload, paymentStartPrefix)), len(payload) > len(paymentStartPrefix)
	}
	return "", "", false
}

// DriverSummary asks the requester to confirm the driver who claimed the order.
func DriverSummary(chat types.TelegramID, o OrderCard, d DriverCard) Message {
	rating := "нет оценки"
	if d.Rating != nil {
		rating = strconv.FormatFloat(*d.Rating, 'f', 1, 64) + " ⭐️"
	}
	text := fmt.Sprintf(
		"<b>Водитель</b>: <em>%s</em> <b>(%s)</b>\n\n"+
			"<b>Стоимость поездки</b>: <em>%d руб.</em>\n"+
			"<b>Примерное время поездки</b>: <em>%d минут</em>\n"+
			"<b>Машина</b>: <em>%s</em>\n"+
			"<b>Номер</b>: <em>%s</em>\n",
		html.EscapeString(d.FullName), rating, o.Price, o.TravelMinutes,
		html.EscapeString(d.CarName), html.EscapeString(d.Plate),
	)
	return Message{
		ChatID:  chat,
		Text:    text,
		Buttons: [][]Button{Row(CallbackButton("Выбрать ☑️", Encode(ActionConfirm, string(o.ID))))},
	}
}

const (
	TextSearching       = "Поиск водителей..."
	TextClaimSent       = "Заявка отправлена пользователю ✅\n\nОжидайте ответа."
	TextClaimHeld       = "Вы уже приняли этот заказ ✅\n\nОжидайте ответа пользователя."
	TextAlreadyTaken    = "Извини, но кто-то успел принять заказ до тебя"
	TextDeclined        = "Заказ отклонён."
	TextAreYouSure      = "<b>Вы уверены?</b>"
	TextCompleted       = "Заказ завершен ✅"
	TextRateRider       = "Пожалуйста, оцените пассажира"
	TextRateDriver      = "Пожалуйста, оцените водителя"
	TextThanksForRating = "Спасибо за вашу оценку ⭐️"
	TextCarApproved     = "Ваше авто одобрено администрацией!"
	TextCarDisapproved  = "К сожалению, ваше авто не прошло верификацию."
	TextTariffApproved  = "Ваша заявка одобрена администрацией!"
	TextTariffRejected  = "Ваша заявка не была одобрена администрацией."
	TextEnterPoints     = "Введите количество баллов для списания"
	TextAskOrigin       = "Отправьте геолокацию или адрес отправления в формате <b>Город, Улица, Дом</b>"
	TextAskDestination  = "Отправьте адрес назначения в формате <b>Город, Улица, Дом</b>"
)

// TripActive tells the driver that the rider paid and the trip may start.
func TripActive(chat types.TelegramID, o OrderCard) Message {
	return Message{
		ChatID:  chat,
		Text:    "<b>Заявка на заказ одобрена! Заказ активен ✅.</b>\n\n" + OrderInfo(o),
		Buttons: [][]Button{Row(CallbackButton("Завершить заказ", Encode(ActionCompleteAsk, string(o.ID))))},
	}
}

func CompletionPrompt(chat types.TelegramID, id types.ID) Message {
	return Message{
		ChatID: chat,
		Text:   TextAreYouSure,
		Buttons: [][]Button{Row(
			CallbackButton("Да", Encode(ActionCompleteYes, string(id))),
			CallbackButton("Нет", Encode(ActionCompleteNo, string(id))),
		)},
	}
}

// RatePrompt offers scores 1..5 for the given order.
func RatePrompt(chat types.TelegramID, id types.ID, text string) Message {
	row := make([]Button, 0, 5)
	for score := 1; score <= 5; score++ {
		s := strconv.Itoa(score)
		row = append(row, CallbackButton(s+" ⭐️", Encode(ActionRate, string(id), s)))
	}
	return Message{ChatID: chat, Text: text, Buttons: [][]Button{row}}
}

// PaymentOffer carries the provider checkout link and, when the rider has
// points, a write-off action.
func PaymentOffer(chat types.TelegramID, amount, pointsToCredit int64, url string, writeOff string) Message {
	text := fmt.Sprintf("<b>К оплате:</b> <em>%d руб.</em>\n\nНачислим %d баллов.", amount, pointsToCredit)
	rows := [][]Button{Row(LinkButton("Оплатить 💳", url))}
	if writeOff != "" {
		rows = append(rows, Row(CallbackButton("Списать баллы 💸", writeOff)))
	}
	return Message{ChatID: chat, Text: text, Buttons: rows}
}

func PaymentSucceeded(chat types.TelegramID, amount int64, forOrder bool) Message {
	text := fmt.Sprintf("Платеж на сумму %d руб. прошел успешно ✅\n", amount)
	if forOrder {
		text += "Ожидайте водителя."
	}
	return Message{ChatID: chat, Text: text}
}

// Fulfillment notifies the fulfillment chat about a paid product.
func Fulfillment(chat types.TelegramID, product string, price int64, address, phone, username string) Message {
	text := fmt.Sprintf(
		"<b>Новый заказ товара!</b>\n\n"+
			"<b>Товар:</b> <em>%s</em>\n"+
			"<b>Стоимость:</b> <em>%d руб.</em>\n"+
			"<b>Адрес:</b> <em>%s</em>\n"+
			"<b>Телефон:</b> <em>%s</em>\n",
		html.EscapeString(product), price, html.EscapeString(address), html.EscapeString(phone),
	)
	if username != "" {
		text += "<b>Пользователь:</b> @" + html.EscapeString(username) + "\n"
	}
	return Message{ChatID: chat, Text: text}
}

func DailyStats(orders int, income int64) string {
	return fmt.Sprintf("<b>Статистика за сегодня</b>\n\n<b>Заказов:</b> %d\n<b>Доход:</b> %d руб.", orders, income)
}

// ReplyFor maps an error kind to a generic chat reply.
func ReplyFor(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindUserInput:
		return "Некорректный ввод. Попробуйте ещё раз."
	case apperr.KindResolution:
		return "Не удалось найти адрес или построить маршрут. Попробуйте ввести адрес ещё раз."
	case apperr.KindConflict, apperr.KindInvariant:
		return "Действие уже недоступно."
	case apperr.KindNotFound:
		return "Не найдено."
	case apperr.KindProvider:
		return "Сервис временно недоступен. Попробуйте позже."
	default:
		return "Что-то пошло не так. Попробуйте позже."
	}
}
