package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/apperr"
	"github.com/KamranYsupov/TaxiDriverBot/internal/jobs"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/market"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/pricing"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/rider"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify/notifytest"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

const (
	payerID     types.ID         = "rider-1"
	payerTG     types.TelegramID = 1000
	fulfillment types.TelegramID = -100900
)

type balance struct {
	points int64
	last   time.Time
}

// memLedger mirrors Store: conditional debit, one live payment per order,
// paid flip with credit.
type memLedger struct {
	mu       sync.Mutex
	payments map[types.ID]*Payment
	riders   map[types.ID]*balance
}

func newMemLedger() *memLedger {
	return &memLedger{payments: map[types.ID]*Payment{}, riders: map[types.ID]*balance{}}
}

func (m *memLedger) Get(_ context.Context, id types.ID) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memLedger) SetProviderTx(_ context.Context, id types.ID, txID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.ProviderTxID = &txID
	p.ConfirmationURL = url
	return nil
}

func (m *memLedger) Open(_ context.Context, p *Payment) ([]*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var live []*Payment
	if p.OrderID != nil {
		for _, q := range m.payments {
			if q.OrderID == nil || *q.OrderID != *p.OrderID || q.Status == StatusCancelled {
				continue
			}
			if q.Paid() {
				return nil, ErrOrderAlreadyPaid
			}
			live = append(live, q)
		}
	}
	refunds := map[types.ID]int64{}
	for _, q := range live {
		refunds[q.PayerID] += q.PointsSpent
	}
	b, ok := m.riders[p.PayerID]
	if p.PointsSpent > 0 && (!ok || b.points+refunds[p.PayerID] < p.PointsSpent) {
		return nil, ErrInsufficientPoints
	}

	var replaced []*Payment
	for _, q := range live {
		q.Status = StatusCancelled
		if r, ok := m.riders[q.PayerID]; ok {
			r.points += q.PointsSpent
		}
		cp := *q
		replaced = append(replaced, &cp)
	}
	if p.PointsSpent > 0 {
		b.points -= p.PointsSpent
	}
	cp := *p
	m.payments[p.ID] = &cp
	return replaced, nil
}

func (m *memLedger) orderPayments(orderID types.ID) []*Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Payment
	for _, p := range m.payments {
		if p.OrderID != nil && *p.OrderID == orderID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memLedger) MarkPaid(_ context.Context, id types.ID) (bool, *Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return false, nil, ErrNotFound
	}
	if p.Status != StatusNotPaid {
		cp := *p
		return false, &cp, nil
	}
	if p.OrderID != nil {
		for _, q := range m.payments {
			if q.OrderID != nil && *q.OrderID == *p.OrderID && q.Paid() {
				cp := *p
				return false, &cp, ErrOrderAlreadyPaid
			}
		}
	}
	now := time.Now()
	p.Status = StatusPaid
	p.PaidAt = &now
	if p.PointsToCredit > 0 {
		b := m.riders[p.PayerID]
		b.points += p.PointsToCredit
		b.last = now
	}
	cp := *p
	return true, &cp, nil
}

func (m *memLedger) ExpirePoints(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.riders {
		if b.points > 0 && b.last.Before(cutoff) {
			b.points = 0
			n++
		}
	}
	return n, nil
}

func (m *memLedger) points(id types.ID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.riders[id].points
}

type fakeProvider struct {
	mu        sync.Mutex
	requests  []IntentRequest
	paid      bool
	createErr error
	checks    atomic.Int32
	cancelled []string
}

func (f *fakeProvider) CreateIntent(_ context.Context, req IntentRequest) (ProviderIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return ProviderIntent{}, f.createErr
	}
	f.requests = append(f.requests, req)
	return ProviderIntent{TxID: "cs_" + req.PaymentID, URL: "https://pay.example/" + req.PaymentID}, nil
}

func (f *fakeProvider) Cancel(_ context.Context, txID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, txID)
	return nil
}

func (f *fakeProvider) IsPaid(context.Context, string) (bool, error) {
	f.checks.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paid, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[types.ID]*order.Order
	paid   int
}

func (f *fakeOrders) Get(_ context.Context, id types.ID) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, id types.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[id]
	if o.Status == order.StatusAssigned {
		o.Status = order.StatusPaid
		f.paid++
	}
	return nil
}

type fakeProducts struct {
	mu       sync.Mutex
	products map[types.ID]*market.Product
}

func (f *fakeProducts) Available(ctx context.Context, id types.ID) (*market.Product, error) {
	p, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.InStock() {
		return nil, market.ErrOutOfStock
	}
	return p, nil
}

func (f *fakeProducts) Get(_ context.Context, id types.ID) (*market.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) Sold(_ context.Context, id types.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	if p.Quantity == 0 {
		return market.ErrOutOfStock
	}
	p.Quantity--
	return nil
}

type fakeRiders struct{}

func (fakeRiders) Get(_ context.Context, id types.ID) (*rider.Rider, error) {
	return &rider.Rider{ID: id, TelegramID: payerTG, Username: "ivan"}, nil
}

type staticPricing struct{}

func (staticPricing) Config(context.Context) (pricing.Config, error) { return pricing.DefaultConfig, nil }

type memScheduler struct {
	mu   sync.Mutex
	jobs []jobs.Job
}

func (m *memScheduler) Enqueue(_ context.Context, job jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

type fixture struct {
	svc       *Service
	store     *memLedger
	provider  *fakeProvider
	orders    *fakeOrders
	products  *fakeProducts
	scheduler *memScheduler
	messenger *notifytest.Recorder
}

func newFixture() *fixture {
	now := time.Now()
	confirmed := now
	driverID := types.ID("drv-1")
	f := &fixture{
		store:    newMemLedger(),
		provider: &fakeProvider{},
		orders: &fakeOrders{orders: map[types.ID]*order.Order{
			"o-confirmed": {ID: "o-confirmed", Type: types.OrderTaxi, RequesterID: payerID, DriverID: &driverID,
				Status: order.StatusAssigned, Price: 170, ConfirmedAt: &confirmed},
			"o-200": {ID: "o-200", Type: types.OrderDelivery, RequesterID: payerID, DriverID: &driverID,
				Status: order.StatusAssigned, Price: 200, ConfirmedAt: &confirmed},
			"o-unconfirmed": {ID: "o-unconfirmed", Type: types.OrderDelivery, RequesterID: payerID, DriverID: &driverID,
				Status: order.StatusAssigned, Price: 300},
		}},
		products: &fakeProducts{products: map[types.ID]*market.Product{
			"p-chair": {ID: "p-chair", Name: "Кресло", Price: 200, Quantity: 2},
			"p-empty": {ID: "p-empty", Name: "Стол", Price: 500},
		}},
		scheduler: &memScheduler{},
		messenger: notifytest.New(),
	}
	f.store.riders[payerID] = &balance{points: 200, last: now}
	f.svc = NewService(f.store, f.provider, Deps{
		Orders:    f.orders,
		Products:  f.products,
		Riders:    fakeRiders{},
		Pricing:   staticPricing{},
		Scheduler: f.scheduler,
		Messenger: f.messenger,
	}, Config{
		Currency:             "rub",
		BotLink:              "https://t.me/test_bot",
		ProductPointsPercent: 5,
		FulfillmentChatID:    fulfillment,
		PointsTTLDays:        30,
		SweepHour:            0,
		Location:             time.UTC,
	}, zap.NewNop())
	return f
}

func TestPointRules(t *testing.T) {
	assert.Equal(t, int64(35), OrderPoints(170, 100))
	assert.Equal(t, int64(48), OrderPoints(197, 100))
	assert.Zero(t, OrderPoints(80, 100))
	assert.Equal(t, int64(10), ProductPoints(200, 5))
	assert.Zero(t, ProductPoints(200, 0))

	assert.NoError(t, CheckWriteOff(200, 90))
	assert.NoError(t, CheckWriteOff(200, 100))
	assert.ErrorIs(t, CheckWriteOff(200, 101), ErrPointsCapExceeded)
	assert.ErrorIs(t, CheckWriteOff(200, 0), ErrInvalidPoints)

	n, err := ParsePoints(" 90 ")
	require.NoError(t, err)
	assert.Equal(t, int64(90), n)
	for _, bad := range []string{"", "abc", "-5", "0", "1.5"} {
		_, err := ParsePoints(bad)
		assert.ErrorIs(t, err, ErrInvalidPoints, bad)
	}
}

func TestCreatePaymentNeedsExactlyOneTarget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.CreatePayment(ctx, CreatePaymentCommand{PayerID: payerID})
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = f.svc.CreatePayment(ctx, CreatePaymentCommand{PayerID: payerID, OrderID: "o-confirmed", ProductID: "p-chair"})
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Empty(t, f.store.payments)
}

func TestCreateOrderPayment(t *testing.T) {
	f := newFixture()
	intent, err := f.svc.CreatePayment(context.Background(), CreatePaymentCommand{PayerID: payerID, OrderID: "o-confirmed"})
	require.NoError(t, err)

	p := intent.Payment
	assert.Equal(t, TypeTaxi, p.Type)
	assert.Equal(t, int64(170), p.Amount)
	assert.Equal(t, int64(35), p.PointsToCredit)
	assert.Equal(t, StatusNotPaid, p.Status)
	require.NotNil(t, p.ProviderTxID)
	assert.Equal(t, "https://pay.example/"+string(p.ID), intent.URL)

	stored, err := f.store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_"+string(p.ID), *stored.ProviderTxID)

	require.Len(t, f.provider.requests, 1)
	req := f.provider.requests[0]
	assert.NotEmpty(t, req.IdempotencyKey)
	assert.Equal(t, "35", req.Metadata["points"])
	assert.Equal(t, "https://t.me/test_bot?start=payment_"+string(p.ID), req.ReturnURL)
}

func TestCreateOrderPaymentRequiresConfirmation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreatePayment(context.Background(), CreatePaymentCommand{PayerID: payerID, OrderID: "o-unconfirmed"})
	assert.ErrorIs(t, err, order.ErrNotConfirmed)

	_, err = f.svc.CreatePayment(context.Background(), CreatePaymentCommand{PayerID: "someone-else", OrderID: "o-confirmed"})
	assert.ErrorIs(t, err, order.ErrNotParticipant)
}

func TestProviderFailureLeavesUnpaidRow(t *testing.T) {
	f := newFixture()
	f.provider.createErr = errors.New("stripe: 503")

	_, err := f.svc.CreatePayment(context.Background(), CreatePaymentCommand{PayerID: payerID, ProductID: "p-chair"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindProvider))

	require.Len(t, f.store.payments, 1)
	for _, p := range f.store.payments {
		assert.Equal(t, StatusNotPaid, p.Status)
		assert.Nil(t, p.ProviderTxID)
	}
}

func TestExplicitPriceUsedVerbatim(t *testing.T) {
	f := newFixture()
	price := int64(42)
	intent, err := f.svc.CreatePayment(context.Background(), CreatePaymentCommand{PayerID: payerID, ProductID: "p-chair", ExplicitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(42), intent.Payment.Amount)
	assert.Equal(t, int64(10), intent.Payment.PointsToCredit)
}

func TestWriteOffPointsCap(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.WriteOffPoints(ctx, WriteOffCommand{PayerID: payerID, ProductID: "p-chair", Points: 101})
	assert.ErrorIs(t, err, ErrPointsCapExceeded)
	assert.Equal(t, int64(200), f.store.points(payerID))
	assert.Empty(t, f.store.payments)

	intent, err := f.svc.WriteOffPoints(ctx, WriteOffCommand{PayerID: payerID, ProductID: "p-chair", Points: 90})
	require.NoError(t, err)
	assert.Equal(t, int64(110), intent.Payment.Amount)
	assert.Equal(t, int64(90), intent.Payment.PointsSpent)
	assert.Equal(t, int64(110), f.store.points(payerID))
}

func TestWriteOffOrderCap(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.WriteOffPoints(ctx, WriteOffCommand{PayerID: payerID, OrderID: "o-200", Points: 101})
	assert.ErrorIs(t, err, ErrPointsCapExceeded)
	assert.Equal(t, int64(200), f.store.points(payerID))
	assert.Empty(t, f.store.payments)

	intent, err := f.svc.WriteOffPoints(ctx, WriteOffCommand{PayerID: payerID, OrderID: "o-200", Points: 90})
	require.NoError(t, err)
	assert.Equal(t, TypeDelivery, intent.Payment.Type)
	assert.Equal(t, int64(110), intent.Payment.Amount)
	assert.Equal(t, int64(90), intent.Payment.PointsSpent)
	assert.Equal(t, int64(50), intent.Payment.PointsToCredit)
	assert.Equal(t, int64(110), f.store.points(payerID))
}

func TestWriteOffReplacesPendingOrderPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	full, err := f.svc.CreatePayment(ctx, CreatePaymentCommand{PayerID: payerID, OrderID: "o-confirmed"})
	require.NoError(t, err)
	discounted, err := f.svc.WriteOffPoints(ctx, WriteOffCommand{PayerID: payerID, OrderID: "o-confirmed", Points: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(120), discounted.Payment.Amount)
	assert.Equal(t, int64(150), f.store.points(payerID))
	assert.Equal(t, []string{*full.Payment.ProviderTxID}, f.provider.cancelled)

	// Both checkout links report captured; only the live one counts.
	f.provider.paid = true
	_, err = f.svc.Confirm(ctx, full.Payment.ID)
	assert.ErrorIs(t, err, ErrPaymentReplaced)
	c, err := f.svc.Confirm(ctx, discounted.Payment.ID)
	require.NoError(t, err)
	assert.False(t, c.AlreadyPaid)

	var charged int64
	var paid int
	for _, p := range f.store.orderPayments("o-confirmed") {
		if p.Paid() {
			charged += p.Amount
			paid++
		}
	}
	assert.Equal(t, 1, paid)
	assert.Equal(t, int64(120), charged)
	assert.Equal(t, int64(185), f.store.points(payerID))
	assert.Equal(t, 1, f.orders.paid)
}

func TestRepeatedWriteOffRefundsReplacedPoints(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.WriteOffPoints(ctx, WriteOffCommand{PayerID: payerID, OrderID: "o-confirmed", Points: 50})
	require.NoError(t, err)
	_, err = f.svc.WriteOffPoints(ctx, WriteOffCommand{PayerID: payerID, OrderID: "o-confirmed", Points: 80})
	require.NoError(t, err)

	assert.Equal(t, int64(120), f.store.points(payerID))
	replaced, err := f.store.Get(ctx, first.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, replaced.Status)
	assert.Len(t, f.store.orderPayments("o-confirmed"), 2)
}

func TestConfirmRefusesSecondPaymentForPaidOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	intent, err := f.svc.CreatePayment(ctx, CreatePaymentCommand{PayerID: payerID, OrderID: "o-confirmed"})
	require.NoError(t, err)

	// A row that slipped in next to the live one must not be credited once
	// the order is paid.
	orderID := types.ID("o-confirmed")
	tx := "cs_stray"
	f.store.payments["stray"] = &Payment{ID: "stray", Type: TypeTaxi, OrderID: &orderID, PayerID: payerID,
		Amount: 170, Status: StatusNotPaid, PointsToCredit: 35, ProviderTxID: &tx}

	f.provider.paid = true
	_, err = f.svc.Confirm(ctx, intent.Payment.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, "stray")
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
	assert.Equal(t, int64(235), f.store.points(payerID))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestWriteOffInsufficientPoints(t *testing.T) {
	f := newFixture()
	f.store.riders[payerID].points = 50
	_, err := f.svc.WriteOffPoints(context.Background(), WriteOffCommand{PayerID: payerID, ProductID: "p-chair", Points: 80})
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, int64(50), f.store.points(payerID))
	assert.Empty(t, f.store.payments)
}

func TestWriteOffOutOfStockProduct(t *testing.T) {
	f := newFixture()
	_, err := f.svc.WriteOffPoints(context.Background(), WriteOffCommand{PayerID: payerID, ProductID: "p-empty", Points: 10})
	assert.ErrorIs(t, err, market.ErrOutOfStock)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	intent, err := f.svc.CreatePayment(ctx, CreatePaymentCommand{PayerID: payerID, OrderID: "o-confirmed"})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, intent.Payment.ID)
	assert.ErrorIs(t, err, ErrNotPaidYet)

	f.provider.paid = true
	const attempts = 6
	var wg sync.WaitGroup
	var fresh atomic.Int32
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			c, err := f.svc.Confirm(ctx, intent.Payment.ID)
			assert.NoError(t, err)
			if err == nil && !c.AlreadyPaid {
				fresh.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load())
	assert.Equal(t, int64(235), f.store.points(payerID))
	assert.Equal(t, 1, f.orders.paid)
	assert.Len(t, f.messenger.SentTo(payerTG), 1)

	checks := f.provider.checks.Load()
	c, err := f.svc.Confirm(ctx, intent.Payment.ID)
	require.NoError(t, err)
	assert.True(t, c.AlreadyPaid)
	assert.Equal(t, checks, f.provider.checks.Load(), "paid payments are not re-checked")
	assert.Equal(t, int64(235), f.store.points(payerID))
}

func TestConfirmWithoutProviderTx(t *testing.T) {
	f := newFixture()
	f.provider.createErr = errors.New("down")
	_, _ = f.svc.CreatePayment(context.Background(), CreatePaymentCommand{PayerID: payerID, ProductID: "p-chair"})
	for id := range f.store.payments {
		_, err := f.svc.Confirm(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotInitiated)
	}
}

func TestConfirmProductNotifiesFulfillment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	intent, err := f.svc.CreatePayment(ctx, CreatePaymentCommand{
		PayerID:   payerID,
		ProductID: "p-chair",
		Metadata:  map[string]string{MetaAddress: "Москва, Тверская, 7", MetaPhone: "+79001234567"},
	})
	require.NoError(t, err)

	f.provider.paid = true
	_, err = f.svc.Confirm(ctx, intent.Payment.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.products.products["p-chair"].Quantity)
	msgs := f.messenger.SentTo(fulfillment)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Москва, Тверская, 7")
	assert.Contains(t, msgs[0].Text, "+79001234567")
	assert.Contains(t, msgs[0].Text, "@ivan")
	assert.Equal(t, int64(210), f.store.points(payerID))
}

func TestNextSweep(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	now := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, loc), NextSweep(now, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, loc), NextSweep(now, 3, loc))

	exact := time.Date(2026, 3, 2, 3, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 3, 3, 0, 0, 0, loc), NextSweep(exact, 3, loc))
}

func TestSweepExpiresStaleBalancesAndReschedules(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.store.riders[payerID] = &balance{points: 200, last: now.AddDate(0, 0, -31)}
	f.store.riders["fresh"] = &balance{points: 50, last: now.AddDate(0, 0, -2)}

	require.NoError(t, f.svc.HandleSweep(context.Background(), jobs.Job{Kind: jobs.KindPointsSweep}))
	assert.Zero(t, f.store.points(payerID))
	assert.Equal(t, int64(50), f.store.points("fresh"))

	require.Len(t, f.scheduler.jobs, 1)
	next := f.scheduler.jobs[0]
	assert.Equal(t, jobs.KindPointsSweep, next.Kind)
	assert.Equal(t, "points-sweep:2026-03-02", next.ID)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), next.RunAt)
}
