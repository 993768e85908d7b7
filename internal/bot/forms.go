// README: Single-message forms for driver and car registration.
package bot

import (
	"strings"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
)

var ErrBadForm = apperr.UserInput("malformed form")

// splitForm splits "a; b; c" into exactly n trimmed fields.
func splitForm(text string, n int) ([]string, error) {
	parts := strings.Split(text, ";")
	if len(parts) != n {
		return nil, ErrBadForm
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, ErrBadForm
		}
	}
	return parts, nil
}

const (
	driverFormHelp = "Отправьте: <code>/driver ФИО; Телефон; Серия и номер паспорта</code>\n" +
		"Например: <code>/driver Иванов Иван; +79001234567; 1234 567890</code>"
	carFormHelp = "Отправьте: <code>/car Марка и модель; Госномер; VIN</code>\n" +
		"Например: <code>/car Kia Rio; А123АА77; XTA210990Y1234567</code>"
)
