// README: Ledger service: payment intents, point write-offs, idempotent confirmation and point expiry.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/jobs"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/market"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/pricing"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/rider"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/observability"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

var (
	ErrNotFound           = apperr.NotFound("payment not found")
	ErrInvalidTarget      = apperr.Invariant("payment needs exactly one of order or product")
	ErrPointsCapExceeded  = apperr.Conflict("points exceed half of the price")
	ErrInsufficientPoints = apperr.Conflict("not enough points")
	ErrInvalidPoints      = apperr.UserInput("invalid points amount")
	ErrNotInitiated       = apperr.Invariant("payment has no provider transaction")
	ErrNotPaidYet         = apperr.Conflict("payment not completed")
	ErrOrderAlreadyPaid   = apperr.Conflict("order already paid")
	ErrPaymentReplaced    = apperr.Conflict("payment was replaced")
	ErrPaymentInProgress  = apperr.Conflict("payment already being opened")
)

type Repository interface {
	// Open stores a new not_paid payment, debiting PointsSpent, and returns
	// the pending payments of the same order it cancelled.
	Open(ctx context.Context, p *Payment) ([]*Payment, error)
	Get(ctx context.Context, id types.ID) (*Payment, error)
	SetProviderTx(ctx context.Context, id types.ID, txID, url string) error
	MarkPaid(ctx context.Context, id types.ID) (bool, *Payment, error)
	ExpirePoints(ctx context.Context, cutoff time.Time) (int64, error)
}

type Orders interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	MarkPaid(ctx context.Context, id types.ID) error
}

type Products interface {
	Available(ctx context.Context, id types.ID) (*market.Product, error)
	Get(ctx context.Context, id types.ID) (*market.Product, error)
	Sold(ctx context.Context, id types.ID) error
}

type Riders interface {
	Get(ctx context.Context, id types.ID) (*rider.Rider, error)
}

type PricingConfig interface {
	Config(ctx context.Context) (pricing.Config, error)
}

type Scheduler interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

type Deps struct {
	Orders    Orders
	Products  Products
	Riders    Riders
	Pricing   PricingConfig
	Scheduler Scheduler
	Messenger notify.Messenger
}

type Config struct {
	Currency             string
	BotLink              string
	ProductPointsPercent int64
	FulfillmentChatID    types.TelegramID
	PointsTTLDays        int
	SweepHour            int
	Location             *time.Location
}

type Service struct {
	store     Repository
	provider  Provider
	orders    Orders
	products  Products
	riders    Riders
	pricing   PricingConfig
	scheduler Scheduler
	messenger notify.Messenger
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store Repository, provider Provider, deps Deps, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		store:     store,
		provider:  provider,
		orders:    deps.Orders,
		products:  deps.Products,
		riders:    deps.Riders,
		pricing:   deps.Pricing,
		scheduler: deps.Scheduler,
		messenger: deps.Messenger,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

type CreatePaymentCommand struct {
	PayerID   types.ID
	OrderID   types.ID
	ProductID types.ID
	// ExplicitPrice replaces the target price when set.
	ExplicitPrice *int64
	PointsSpent   int64
	Metadata      map[string]string
}

type WriteOffCommand struct {
	PayerID   types.ID
	OrderID   types.ID
	ProductID types.ID
	Points    int64
	Metadata  map[string]string
}

// target is the priced thing a payment is for.
type target struct {
	kind        PaymentType
	orderID     *types.ID
	productID   *types.ID
	price       int64
	credit      int64
	description string
}

func (s *Service) resolveTarget(ctx context.Context, payerID, orderID, productID types.ID) (target, error) {
	if (orderID == "") == (productID == "") {
		return target{}, ErrInvalidTarget
	}
	if orderID != "" {
		o, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return target{}, err
		}
		if o.RequesterID != payerID {
			return target{}, order.ErrNotParticipant
		}
		if o.Status != order.StatusAssigned {
			return target{}, order.ErrInvalidState
		}
		if o.ConfirmedAt == nil {
			return target{}, order.ErrNotConfirmed
		}
		cfg, err := s.pricing.Config(ctx)
		if err != nil {
			return target{}, err
		}
		kind, desc := TypeTaxi, "Поездка"
		if o.Type == types.OrderDelivery {
			kind, desc = TypeDelivery, "Доставка"
		}
		id := o.ID
		return target{
			kind:        kind,
			orderID:     &id,
			price:       o.Price,
			credit:      OrderPoints(o.Price, cfg.BaseFare),
			description: desc,
		}, nil
	}

	p, err := s.products.Available(ctx, productID)
	if err != nil {
		return target{}, err
	}
	id := p.ID
	return target{
		kind:        TypeProduct,
		productID:   &id,
		price:       p.Price,
		credit:      ProductPoints(p.Price, s.cfg.ProductPointsPercent),
		description: p.Name,
	}, nil
}

func (s *Service) newPayment(cmd CreatePaymentCommand, t target) *Payment {
	amount := t.price
	if cmd.ExplicitPrice != nil {
		amount = *cmd.ExplicitPrice
	}
	meta := make(map[string]string, len(cmd.Metadata))
	for k, v := range cmd.Metadata {
		meta[k] = v
	}
	return &Payment{
		ID:             types.NewID(),
		Type:           t.kind,
		OrderID:        t.orderID,
		ProductID:      t.productID,
		PayerID:        cmd.PayerID,
		Amount:         amount,
		Currency:       s.cfg.Currency,
		Status:         StatusNotPaid,
		PointsToCredit: t.credit,
		PointsSpent:    cmd.PointsSpent,
		Metadata:       meta,
		CreatedAt:      s.now(),
	}
}

// CreatePayment persists a not_paid payment and then opens a provider
// intent for it. A provider failure leaves the row unpaid without a
// transaction id. A new order payment replaces the pending one.
func (s *Service) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (*Intent, error) {
	t, err := s.resolveTarget(ctx, cmd.PayerID, cmd.OrderID, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	p := s.newPayment(cmd, t)
	replaced, err := s.store.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	s.cancelReplaced(ctx, replaced)
	return s.openIntent(ctx, p, t.description)
}

// WriteOffPoints spends up to half of the target price in points and opens a
// payment for the rest.
func (s *Service) WriteOffPoints(ctx context.Context, cmd WriteOffCommand) (*Intent, error) {
	t, err := s.resolveTarget(ctx, cmd.PayerID, cmd.OrderID, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if err := CheckWriteOff(t.price, cmd.Points); err != nil {
		return nil, err
	}
	rest := t.price - cmd.Points
	p := s.newPayment(CreatePaymentCommand{
		PayerID:       cmd.PayerID,
		ExplicitPrice: &rest,
		PointsSpent:   cmd.Points,
		Metadata:      cmd.Metadata,
	}, t)
	replaced, err := s.store.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	observability.PointsWrittenOff.Add(float64(cmd.Points))
	s.cancelReplaced(ctx, replaced)
	return s.openIntent(ctx, p, t.description)
}

// cancelReplaced closes the checkout links of payments that were replaced.
func (s *Service) cancelReplaced(ctx context.Context, replaced []*Payment) {
	for _, p := range replaced {
		if p.ProviderTxID == nil {
			continue
		}
		if err := s.provider.Cancel(ctx, *p.ProviderTxID); err != nil {
			s.logger.Error("Failed to cancel replaced payment", zap.String("payment_id", string(p.ID)), zap.Error(err))
		}
	}
}

func (s *Service) openIntent(ctx context.Context, p *Payment, description string) (*Intent, error) {
	meta := map[string]string{
		"payment_id": string(p.ID),
		"type":       string(p.Type),
		"points":     fmt.Sprint(p.PointsToCredit),
	}
	if p.OrderID != nil {
		meta["order_id"] = string(*p.OrderID)
	}
	if p.ProductID != nil {
		meta["product_id"] = string(*p.ProductID)
	}

	pi, err := s.provider.CreateIntent(ctx, IntentRequest{
		PaymentID:      string(p.ID),
		Amount:         p.Amount,
		Currency:       p.Currency,
		Description:    description,
		ReturnURL:      notify.PaymentDeepLink(s.cfg.BotLink, p.ID),
		IdempotencyKey: uuid.NewString(),
		Metadata:       meta,
	})
	if err != nil {
		s.logger.Error("Failed to create payment intent", zap.String("payment_id", string(p.ID)), zap.Error(err))
		return nil, apperr.Provider("create payment intent", err)
	}
	if err := s.store.SetProviderTx(ctx, p.ID, pi.TxID, pi.URL); err != nil {
		return nil, err
	}
	tx := pi.TxID
	p.ProviderTxID = &tx
	p.ConfirmationURL = pi.URL
	observability.PaymentsCreated.Inc()
	return &Intent{Payment: p, URL: pi.URL}, nil
}

type Confirmation struct {
	Payment     *Payment
	AlreadyPaid bool
}

// Confirm asks the provider about the payment and, once captured, marks it
// paid, credits points and completes the target side effects. Confirming a
// paid payment again changes nothing.
func (s *Service) Confirm(ctx context.Context, paymentID types.ID) (Confirmation, error) {
	p, err := s.store.Get(ctx, paymentID)
	if err != nil {
		return Confirmation{}, err
	}
	if p.Paid() {
		s.reconcileOrder(ctx, p)
		return Confirmation{Payment: p, AlreadyPaid: true}, nil
	}
	if p.Status == StatusCancelled {
		s.checkReplacedCapture(ctx, p)
		return Confirmation{}, ErrPaymentReplaced
	}
	if p.ProviderTxID == nil {
		return Confirmation{}, ErrNotInitiated
	}
	paid, err := s.provider.IsPaid(ctx, *p.ProviderTxID)
	if err != nil {
		return Confirmation{}, apperr.Provider("confirm payment", err)
	}
	if !paid {
		return Confirmation{}, ErrNotPaidYet
	}

	flipped, p, err := s.store.MarkPaid(ctx, paymentID)
	if err != nil {
		return Confirmation{}, err
	}
	if !flipped {
		if !p.Paid() {
			return Confirmation{}, ErrPaymentReplaced
		}
		return Confirmation{Payment: p, AlreadyPaid: true}, nil
	}
	observability.PaymentsConfirmed.Inc()
	log := s.logger.With(zap.String("payment_id", string(p.ID)))
	log.Info("Payment confirmed", zap.Int64("amount", p.Amount), zap.Int64("points_credited", p.PointsToCredit))

	payer, err := s.riders.Get(ctx, p.PayerID)
	if err != nil {
		log.Warn("Failed to load payer", zap.Error(err))
	}

	switch {
	case p.OrderID != nil:
		if err := s.orders.MarkPaid(ctx, *p.OrderID); err != nil {
			return Confirmation{Payment: p}, err
		}
	case p.ProductID != nil:
		s.fulfil(ctx, p, payer, log)
	}

	if payer != nil {
		s.send(ctx, notify.PaymentSucceeded(payer.TelegramID, p.Amount, p.OrderID != nil))
	}
	return Confirmation{Payment: p}, nil
}

// checkReplacedCapture reports a replaced payment that the provider still
// captured; it is never credited and needs a manual refund.
func (s *Service) checkReplacedCapture(ctx context.Context, p *Payment) {
	if p.ProviderTxID == nil {
		return
	}
	paid, err := s.provider.IsPaid(ctx, *p.ProviderTxID)
	if err != nil || !paid {
		return
	}
	s.logger.Error("Replaced payment was captured",
		zap.String("payment_id", string(p.ID)),
		zap.Int64("amount", p.Amount))
}

// reconcileOrder repeats the order transition for a paid payment; it is a
// no-op when the order already moved on.
func (s *Service) reconcileOrder(ctx context.Context, p *Payment) {
	if p.OrderID == nil {
		return
	}
	if err := s.orders.MarkPaid(ctx, *p.OrderID); err != nil {
		s.logger.Warn("Failed to reconcile order", zap.String("payment_id", string(p.ID)), zap.Error(err))
	}
}

func (s *Service) fulfil(ctx context.Context, p *Payment, payer *rider.Rider, log *zap.Logger) {
	if err := s.products.Sold(ctx, *p.ProductID); err != nil {
		log.Error("Failed to decrement stock", zap.Error(err))
	}
	product, err := s.products.Get(ctx, *p.ProductID)
	if err != nil {
		log.Error("Failed to load product", zap.Error(err))
		return
	}
	if s.cfg.FulfillmentChatID == 0 {
		log.Warn("Fulfillment chat not configured")
		return
	}
	username := p.Metadata[MetaUsername]
	if username == "" && payer != nil {
		username = payer.Username
	}
	s.send(ctx, notify.Fulfillment(s.cfg.FulfillmentChatID, product.Name, p.Amount,
		p.Metadata[MetaAddress], p.Metadata[MetaPhone], username))
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Payment, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) send(ctx context.Context, msg notify.Message) {
	if s.messenger == nil {
		return
	}
	if _, err := s.messenger.Send(ctx, msg); err != nil {
		s.logger.Warn("Failed to send notification", zap.Int64("chat_id", int64(msg.ChatID)), zap.Error(err))
	}
}
