// README: Dispatch settings and the result of one dispatch round.
package dispatch

import (
	"time"

	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Config struct {
	// ChannelID is the public orders channel; zero disables channel posts.
	ChannelID types.TelegramID
	BotLink   string
	// EscalationDelay is measured from order creation.
	EscalationDelay time.Duration
	FanOutLimit     int
}

type Round struct {
	Offered  int
	Failed   int
	Channel  bool
	Escalate time.Time
}

const (
	reasonNoDrivers  = "no_drivers"
	reasonEscalation = "escalation"
)
