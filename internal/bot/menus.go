// README: Keyboards and static texts of the bot menus.
package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/market"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

const (
	textWelcome = "Добро пожаловать! Выберите, что вам нужно."
	textHelp    = "<b>Пассажирам</b>\n" +
		"/taxi - заказать такси\n" +
		"/delivery - заказать доставку\n" +
		"/tariff - выбрать тариф\n" +
		"/products - магазин\n" +
		"/points - баланс баллов\n" +
		"/cancel - отменить ввод\n\n" +
		"<b>Водителям</b>\n" +
		"/driver - регистрация водителя\n" +
		"/car - добавить авто\n" +
		"/shift - начать или закончить смену\n" +
		"/driver_tariff - сменить тариф\n" +
		"/stats - статистика за сегодня"
	textCancelled      = "Ввод отменён."
	textNoProducts     = "Сейчас в магазине нет товаров."
	textAskAddress     = "Отправьте адрес доставки товара."
	textAskPhone       = "Отправьте номер телефона для связи."
	textTariffChanged  = "Тариф изменён ✅"
	textTariffRequest  = "Заявка на смену тарифа отправлена администрации."
	textDriverCreated  = "Вы зарегистрированы как водитель ✅\n\n" + carFormHelp
	textCarSubmitted   = "Авто отправлено на проверку. Мы сообщим о решении."
	textShiftStarted   = "Смена начата. Вы будете получать заказы 🚕"
	textShiftFinished  = "Смена завершена."
	textPaymentPending = "Платёж ещё не завершён. Попробуйте позже."
	textAlreadyPaid    = "Этот платёж уже подтверждён ✅"
)

func mainMenu(chat types.TelegramID) notify.Message {
	return notify.Message{
		ChatID: chat,
		Text:   textWelcome,
		Buttons: [][]notify.Button{
			notify.Row(
				notify.CallbackButton("Такси 🚕", notify.Encode(notify.ActionOrderType, string(types.OrderTaxi))),
				notify.CallbackButton("Доставка 📦", notify.Encode(notify.ActionOrderType, string(types.OrderDelivery))),
			),
			notify.Row(
				notify.CallbackButton("Тариф", notify.Encode(notify.ActionTariff)),
				notify.CallbackButton("Магазин 🛍", notify.Encode(notify.ActionProducts)),
			),
		},
	}
}

// tariffMenu offers both tariffs under verb (rider or driver tariff).
func tariffMenu(chat types.TelegramID, verb string, current types.Tariff) notify.Message {
	label := func(t types.Tariff, name string) string {
		if t == current {
			return "✅ " + name
		}
		return name
	}
	return notify.Message{
		ChatID: chat,
		Text:   "Выберите тариф",
		Buttons: [][]notify.Button{notify.Row(
			notify.CallbackButton(label(types.TariffStandard, "Стандартный"), notify.Encode(verb, string(types.TariffStandard))),
			notify.CallbackButton(label(types.TariffUrgent, "Срочный"), notify.Encode(verb, string(types.TariffUrgent))),
		)},
	}
}

func productsMessage(chat types.TelegramID, products []market.Product) notify.Message {
	if len(products) == 0 {
		return notify.Message{ChatID: chat, Text: textNoProducts}
	}
	var b strings.Builder
	b.WriteString("<b>Магазин</b>\n\n")
	rows := make([][]notify.Button, 0, len(products))
	for _, p := range products {
		fmt.Fprintf(&b, "<b>%s</b> - %d руб.\n", html.EscapeString(p.Name), p.Price)
		if p.Description != "" {
			fmt.Fprintf(&b, "<em>%s</em>\n", html.EscapeString(p.Description))
		}
		b.WriteString("\n")
		rows = append(rows, notify.Row(
			notify.CallbackButton("Купить "+p.Name, notify.Encode(notify.ActionBuy, string(p.ID))),
			notify.CallbackButton("С баллами", notify.Encode(notify.ActionBuyWriteOff, string(p.ID))),
		))
	}
	return notify.Message{ChatID: chat, Text: b.String(), Buttons: rows}
}

func pointsText(points int64) string {
	return fmt.Sprintf("У вас <b>%d</b> баллов.", points)
}

func shiftText(active bool) string {
	if active {
		return textShiftStarted
	}
	return textShiftFinished
}
