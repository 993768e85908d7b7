// README: Telegram update loop routing commands, callbacks and free-text input to services.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/logger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/ledger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/market"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/review"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/rider"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

// UpdateSource delivers updates; *tgbotapi.BotAPI satisfies it.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Deps struct {
	Riders    *rider.Service
	Drivers   *driver.Service
	Orders    *order.Service
	Ledger    *ledger.Service
	Reviews   *review.Service
	Market    *market.Service
	Messenger notify.Messenger
	Drafts    *DraftStore
}

type Config struct {
	PollTimeout int
	// Location is the day boundary used by driver statistics.
	Location *time.Location
}

type Bot struct {
	riders    *rider.Service
	drivers   *driver.Service
	orders    *order.Service
	ledger    *ledger.Service
	reviews   *review.Service
	market    *market.Service
	messenger notify.Messenger
	drafts    *DraftStore
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func New(deps Deps, cfg Config, log *zap.Logger) *Bot {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Bot{
		riders:    deps.Riders,
		drivers:   deps.Drivers,
		orders:    deps.Orders,
		ledger:    deps.Ledger,
		reviews:   deps.Reviews,
		market:    deps.Market,
		messenger: deps.Messenger,
		drafts:    deps.Drafts,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// Run long-polls src until ctx is done. Each update is handled on its own
// goroutine; Run returns after in-flight handlers finish.
func (b *Bot) Run(ctx context.Context, src UpdateSource) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := src.GetUpdatesChan(u)
	b.logger.Info("Starting telegram update loop", zap.Int("poll_timeout", b.cfg.PollTimeout))

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			b.logger.Info("Telegram update loop stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Handle(ctx, upd)
			}()
		}
	}
}

// Handle routes a single update.
func (b *Bot) Handle(ctx context.Context, upd tgbotapi.Update) {
	ctx = logger.WithCorrelationID(ctx, fmt.Sprintf("upd-%d", upd.UpdateID))
	log := logger.From(ctx, b.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while handling update", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		if upd.Message.IsCommand() {
			b.handleCommand(ctx, upd.Message)
		} else {
			b.handleInput(ctx, upd.Message)
		}
	}
}

func (b *Bot) send(ctx context.Context, msg notify.Message) {
	if _, err := b.messenger.Send(ctx, msg); err != nil {
		logger.From(ctx, b.logger).Warn("Failed to send message", zap.Int64("chat_id", int64(msg.ChatID)), zap.Error(err))
	}
}

func (b *Bot) reply(ctx context.Context, chat types.TelegramID, text string, rows ...[]notify.Button) {
	b.send(ctx, notify.Message{ChatID: chat, Text: text, Buttons: rows})
}

// fail logs unexpected errors and tells the chat what went wrong.
func (b *Bot) fail(ctx context.Context, chat types.TelegramID, op string, err error) {
	logger.From(ctx, b.logger).Info("Request rejected", zap.String("op", op), zap.Int64("chat_id", int64(chat)), zap.Error(err))
	b.reply(ctx, chat, replyFor(err))
}

// clearDraft drops the chat's draft once its flow has finished.
func (b *Bot) clearDraft(ctx context.Context, chat types.TelegramID) {
	if err := b.drafts.Clear(ctx, chat); err != nil {
		logger.From(ctx, b.logger).Warn("Failed to clear draft", zap.Int64("chat_id", int64(chat)), zap.Error(err))
	}
}

func (b *Bot) edit(ctx context.Context, messageID int, msg notify.Message) {
	if err := b.messenger.Edit(ctx, messageID, msg); err != nil {
		logger.From(ctx, b.logger).Warn("Failed to edit message", zap.Int("message_id", messageID), zap.Error(err))
	}
}
