package order_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/maps"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order/ordertest"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/pricing"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify/notifytest"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

const riderTG types.TelegramID = 1000

type fakeResolver struct {
	mu       sync.Mutex
	lastCity string
}

func (f *fakeResolver) Geocode(_ context.Context, text string) (maps.Address, error) {
	return maps.Address{Text: "Москва, " + text, City: "Москва", Point: types.Point{Lat: 55.75, Lng: 37.61}}, nil
}

func (f *fakeResolver) GeocodeInCity(_ context.Context, city, text string) (maps.Address, error) {
	f.mu.Lock()
	f.lastCity = city
	f.mu.Unlock()
	return maps.Address{Text: city + ", " + text, City: city, Point: types.Point{Lat: 55.70, Lng: 37.50}}, nil
}

func (f *fakeResolver) ReverseGeocode(_ context.Context, p types.Point) (maps.Address, error) {
	return maps.Address{Text: "Казань, Баумана, 1", City: "Казань", Point: p}, nil
}

func (f *fakeResolver) Route(_ context.Context, _, _ types.Point) (maps.Route, error) {
	return maps.Route{DistanceM: 5000, DurationS: 600}, nil
}

type staticConfig struct{}

func (staticConfig) GetOrCreate(context.Context) (pricing.Config, error) {
	return pricing.DefaultConfig, nil
}

func (staticConfig) Update(context.Context, pricing.Config) error { return nil }

type fakeDrivers struct {
	byTG map[types.TelegramID]*driver.Driver
}

func (f *fakeDrivers) add(tg types.TelegramID, approved bool) *driver.Driver {
	status := driver.StatusWaiting
	if approved {
		status = driver.StatusApproved
	}
	d := &driver.Driver{
		ID:         types.ID(fmt.Sprintf("drv-%d", tg)),
		TelegramID: tg,
		FullName:   "Иван Петров",
		IsActive:   true,
		Car:        &driver.Car{Name: "Kia Rio", Plate: "А123АА", Status: status},
	}
	f.byTG[tg] = d
	return d
}

func (f *fakeDrivers) Get(_ context.Context, id types.ID) (*driver.Driver, error) {
	for _, d := range f.byTG {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, driver.ErrNotFound
}

func (f *fakeDrivers) ByTelegram(_ context.Context, tg types.TelegramID) (*driver.Driver, error) {
	if d, ok := f.byTG[tg]; ok {
		return d, nil
	}
	return nil, driver.ErrNotFound
}

func (f *fakeDrivers) CountEligible(context.Context) (int, error) {
	n := 0
	for _, d := range f.byTG {
		if d.Eligible() {
			n++
		}
	}
	return n, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	orders []types.ID
	offers map[types.ID]map[types.TelegramID]bool
}

func (r *recordingDispatcher) offer(orderID types.ID, drivers ...types.TelegramID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offers == nil {
		r.offers = map[types.ID]map[types.TelegramID]bool{}
	}
	if r.offers[orderID] == nil {
		r.offers[orderID] = map[types.TelegramID]bool{}
	}
	for _, d := range drivers {
		r.offers[orderID][d] = true
	}
}

func (r *recordingDispatcher) Declined(_ context.Context, orderID types.ID, driverTG types.TelegramID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.offers[orderID][driverTG] {
		return false, nil
	}
	delete(r.offers[orderID], driverTG)
	return true, nil
}

func (r *recordingDispatcher) OrderCreated(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o.ID)
	return nil
}

type fixture struct {
	svc        *order.Service
	store      *ordertest.MemStore
	drivers    *fakeDrivers
	resolver   *fakeResolver
	dispatcher *recordingDispatcher
	messenger  *notifytest.Recorder
}

func newFixture(cities ...string) *fixture {
	f := &fixture{
		store:      ordertest.NewMemStore(),
		drivers:    &fakeDrivers{byTG: map[types.TelegramID]*driver.Driver{}},
		resolver:   &fakeResolver{},
		dispatcher: &recordingDispatcher{},
		messenger:  notifytest.New(),
	}
	f.svc = order.NewService(f.store, order.Deps{
		Resolver:      f.resolver,
		Pricing:       pricing.NewService(staticConfig{}),
		Drivers:       f.drivers,
		Dispatcher:    f.dispatcher,
		Messenger:     f.messenger,
		ServiceCities: cities,
	}, zap.NewNop())
	return f
}

func (f *fixture) create(t *testing.T, tariff types.Tariff) *order.Order {
	t.Helper()
	ctx := context.Background()
	origin, err := f.svc.ResolveOrigin(ctx, nil, "Тверская, 7")
	require.NoError(t, err)
	o, err := f.svc.Create(ctx, order.CreateCommand{
		RequesterID:         "rider-1",
		RequesterTelegramID: riderTG,
		Type:                types.OrderTaxi,
		Tariff:              tariff,
		Origin:              origin,
		DestinationText:     "Арбат, 1",
	})
	require.NoError(t, err)
	return o
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to order.Status
		want     bool
	}{
		{order.StatusNone, order.StatusCreated, true},
		{order.StatusCreated, order.StatusAssigned, true},
		{order.StatusAssigned, order.StatusPaid, true},
		{order.StatusPaid, order.StatusCompleted, true},
		{order.StatusCreated, order.StatusPaid, false},
		{order.StatusAssigned, order.StatusCompleted, false},
		{order.StatusCompleted, order.StatusCreated, false},
		{order.StatusPaid, order.StatusAssigned, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, order.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCreatePricesAndDispatches(t *testing.T) {
	f := newFixture()
	f.drivers.add(1, true)
	f.drivers.add(2, true)
	f.drivers.add(3, false)

	o := f.create(t, types.TariffStandard)
	assert.Equal(t, int64(170), o.Price)
	assert.Equal(t, 10, o.TravelMinutes)
	assert.Equal(t, order.StatusCreated, o.Status)
	assert.Equal(t, 2, o.ActiveDriversCount)
	assert.Nil(t, o.DriverID)
	assert.Equal(t, "Москва, Арбат, 1", o.To.Address)
	assert.Equal(t, "Москва", f.resolver.lastCity)
	assert.Equal(t, []types.ID{o.ID}, f.dispatcher.orders)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, order.StatusCreated, events[0].ToStatus)
}

func TestCreateUrgentTariff(t *testing.T) {
	f := newFixture()
	o := f.create(t, types.TariffUrgent)
	assert.Equal(t, int64(197), o.Price)
}

func TestResolveOriginRejectsUnservedCity(t *testing.T) {
	f := newFixture("Москва")
	_, err := f.svc.ResolveOrigin(context.Background(), &types.Point{Lat: 55.79, Lng: 49.12}, "")
	assert.ErrorIs(t, err, order.ErrNotServed)

	addr, err := f.svc.ResolveOrigin(context.Background(), nil, "Тверская, 7")
	require.NoError(t, err)
	assert.Equal(t, "Москва", addr.City)
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	f := newFixture()
	const drivers = 8
	for i := 1; i <= drivers; i++ {
		f.drivers.add(types.TelegramID(i), true)
	}
	o := f.create(t, types.TariffStandard)

	var wg sync.WaitGroup
	start := make(chan struct{})
	type result struct {
		outcome order.ClaimOutcome
		err     error
	}
	results := make(chan result, drivers)
	for i := 1; i <= drivers; i++ {
		wg.Add(1)
		go func(tg types.TelegramID) {
			defer wg.Done()
			<-start
			outcome, err := f.svc.Claim(context.Background(), o.ID, tg)
			results <- result{outcome, err}
		}(types.TelegramID(i))
	}
	close(start)
	wg.Wait()
	close(results)

	assigned := 0
	for r := range results {
		if r.err == nil {
			assert.Equal(t, order.ClaimAssigned, r.outcome)
			assigned++
			continue
		}
		assert.ErrorIs(t, r.err, order.ErrAlreadyTaken)
	}
	assert.Equal(t, 1, assigned)
	assert.Len(t, f.messenger.SentTo(riderTG), 1)

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DriverID)
	assert.Equal(t, order.StatusAssigned, got.Status)
}

func TestClaimAgainBySameDriverIsAcknowledged(t *testing.T) {
	f := newFixture()
	f.drivers.add(7, true)
	o := f.create(t, types.TariffStandard)
	ctx := context.Background()

	outcome, err := f.svc.Claim(ctx, o.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, order.ClaimAssigned, outcome)

	outcome, err = f.svc.Claim(ctx, o.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, order.ClaimAlreadyHeld, outcome)
	assert.Len(t, f.messenger.SentTo(riderTG), 1)
}

func TestClaimRejections(t *testing.T) {
	f := newFixture()
	f.drivers.add(riderTG, true)
	f.drivers.add(9, false)
	o := f.create(t, types.TariffStandard)
	ctx := context.Background()

	_, err := f.svc.Claim(ctx, o.ID, riderTG)
	assert.ErrorIs(t, err, order.ErrOwnOrder)

	_, err = f.svc.Claim(ctx, o.ID, 9)
	assert.ErrorIs(t, err, driver.ErrCarNotApproved)

	_, err = f.svc.Claim(ctx, "missing", riderTG)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestDeclineKeepsOrderClaimable(t *testing.T) {
	f := newFixture()
	f.drivers.add(5, true)
	o := f.create(t, types.TariffStandard)
	ctx := context.Background()

	f.dispatcher.offer(o.ID, 5, 6)

	require.NoError(t, f.svc.Decline(ctx, o.ID, 5))
	require.NoError(t, f.svc.Decline(ctx, o.ID, 5))
	require.NoError(t, f.svc.Decline(ctx, o.ID, 6))
	// Not offered, so not a miss.
	require.NoError(t, f.svc.Decline(ctx, o.ID, 7))

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MissCount)
	assert.True(t, got.Unassigned())

	outcome, err := f.svc.Claim(ctx, o.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, order.ClaimAssigned, outcome)
}

func TestLifecycleThroughCompletion(t *testing.T) {
	f := newFixture()
	d := f.drivers.add(5, true)
	f.drivers.add(6, true)
	o := f.create(t, types.TariffStandard)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.MarkPaid(ctx, o.ID), order.ErrInvalidState)

	_, err := f.svc.Claim(ctx, o.ID, d.TelegramID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmDriver(ctx, o.ID, 6)
	assert.ErrorIs(t, err, order.ErrNotParticipant)
	confirmed, err := f.svc.ConfirmDriver(ctx, o.ID, riderTG)
	require.NoError(t, err)
	require.NotNil(t, confirmed.ConfirmedAt)
	_, err = f.svc.ConfirmDriver(ctx, o.ID, riderTG)
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkPaid(ctx, o.ID))
	require.NoError(t, f.svc.MarkPaid(ctx, o.ID))
	active := f.messenger.SentTo(d.TelegramID)
	require.Len(t, active, 1)
	assert.Equal(t, notify.Encode(notify.ActionCompleteAsk, string(o.ID)), active[0].Buttons[0][0].Data)

	_, err = f.svc.PromptCompletion(ctx, o.ID, 6)
	assert.ErrorIs(t, err, order.ErrNotParticipant)
	prompt, err := f.svc.PromptCompletion(ctx, o.ID, d.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, notify.TextAreYouSure, prompt.Text)

	require.NoError(t, f.svc.Complete(ctx, o.ID, d.TelegramID))
	assert.ErrorIs(t, f.svc.Complete(ctx, o.ID, d.TelegramID), order.ErrInvalidState)

	assert.Len(t, f.messenger.SentTo(d.TelegramID), 2)
	riderMsgs := f.messenger.SentTo(riderTG)
	assert.Equal(t, notify.TextRateDriver, riderMsgs[len(riderMsgs)-1].Text)

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	stats, err := f.svc.DailyStats(ctx, d.TelegramID, time.Now(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, order.Stats{Orders: 1, Income: 170}, stats)
}

func TestConcurrentCompletionSingleWinner(t *testing.T) {
	f := newFixture()
	d := f.drivers.add(5, true)
	o := f.create(t, types.TariffStandard)
	ctx := context.Background()
	_, err := f.svc.Claim(ctx, o.ID, d.TelegramID)
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkPaid(ctx, o.ID))

	const attempts = 5
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- f.svc.Complete(ctx, o.ID, d.TelegramID)
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.True(t, err == order.ErrConflict || err == order.ErrInvalidState, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, success)
}
