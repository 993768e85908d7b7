// README: User-facing replies for domain errors.
package bot

import (
	"errors"

	"github.com/KamranYsupov/TaxiDriverBot/internal/maps"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/ledger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/market"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/review"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
)

var replies = []struct {
	err  error
	text string
}{
	{order.ErrAlreadyTaken, notify.TextAlreadyTaken},
	{order.ErrOwnOrder, "Нельзя взять собственный заказ."},
	{order.ErrNotServed, "К сожалению, мы пока не работаем в этом городе."},
	{order.ErrNotParticipant, "Этот заказ вам недоступен."},
	{order.ErrNotConfirmed, "Сначала подтвердите водителя."},
	{maps.ErrAddressNotFound, "Адрес не найден. Отправьте адрес в формате <b>Город, Улица, Дом</b>."},
	{maps.ErrRouteComputation, "Не удалось построить маршрут. Попробуйте другой адрес."},
	{driver.ErrNotFound, "Вы не зарегистрированы как водитель."},
	{driver.ErrAlreadyRegistered, "Вы уже зарегистрированы."},
	{driver.ErrCarNotApproved, "Ваше авто ещё не одобрено администрацией."},
	{driver.ErrTariffUnchanged, "У вас уже этот тариф."},
	{driver.ErrRequestPending, "Заявка на смену тарифа уже на рассмотрении."},
	{ledger.ErrPointsCapExceeded, "Баллами можно оплатить не больше половины стоимости."},
	{ledger.ErrInsufficientPoints, "Недостаточно баллов."},
	{ledger.ErrInvalidPoints, "Введите целое положительное число."},
	{ledger.ErrNotPaidYet, "Платёж ещё не завершён."},
	{ledger.ErrOrderAlreadyPaid, "Заказ уже оплачен."},
	{ledger.ErrPaymentReplaced, "Эта ссылка больше не действует. Оплатите по последней ссылке."},
	{ledger.ErrPaymentInProgress, "Платёж уже создаётся. Попробуйте через минуту."},
	{market.ErrOutOfStock, "Товар закончился."},
	{review.ErrAlreadyRated, "Вы уже оценили этот заказ."},
}

// replyFor picks the most specific reply for err.
func replyFor(err error) string {
	for _, r := range replies {
		if errors.Is(err, r.err) {
			return r.text
		}
	}
	return notify.ReplyFor(err)
}
