// README: Compact callback payloads ("verb:arg:arg") carried by inline buttons.
package notify

import (
	"errors"
	"strings"
)

// Telegram limits callback data to 64 bytes.
const maxCallbackData = 64

const (
	ActionClaim        = "claim"
	ActionDecline      = "decline"
	ActionConfirm      = "confirm"
	ActionPay          = "pay"
	ActionWriteOff     = "writeoff"
	ActionCompleteAsk  = "done"
	ActionCompleteYes  = "done_yes"
	ActionCompleteNo   = "done_no"
	ActionRate         = "rate"
	ActionOrderType    = "otype"
	ActionTariff       = "tariff"
	ActionDriverTariff = "dtariff"
	ActionShift        = "shift"
	ActionProducts     = "products"
	ActionBuy          = "buy"
	ActionBuyWriteOff  = "buy_wo"
	ActionStats        = "stats"
)

var ErrBadAction = errors.New("malformed callback data")

type Action struct {
	Verb string
	Args []string
}

// Arg returns the i-th argument or "".
func (a Action) Arg(i int) string {
	if i < 0 || i >= len(a.Args) {
		return ""
	}
	return a.Args[i]
}

func Encode(verb string, args ...string) string {
	return strings.Join(append([]string{verb}, args...), ":")
}

func Decode(data string) (Action, error) {
	if data == "" || len(data) > maxCallbackData {
		return Action{}, ErrBadAction
	}
	parts := strings.Split(data, ":")
	if parts[0] == "" {
		return Action{}, ErrBadAction
	}
	return Action{Verb: parts[0], Args: parts[1:]}, nil
}
