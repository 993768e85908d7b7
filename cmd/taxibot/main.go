// README: Entry point; loads config, wires services, runs the bot, job worker and HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KamranYsupov/TaxiDriverBot/internal/bot"
	"github.com/KamranYsupov/TaxiDriverBot/internal/config"
	httptransport "github.com/KamranYsupov/TaxiDriverBot/internal/http"
	"github.com/KamranYsupov/TaxiDriverBot/internal/infra"
	"github.com/KamranYsupov/TaxiDriverBot/internal/jobs"
	"github.com/KamranYsupov/TaxiDriverBot/internal/logger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/maps"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/dispatch"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/ledger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/market"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/order"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/pricing"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/review"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/rider"
	"github.com/KamranYsupov/TaxiDriverBot/internal/notify"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.Init(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, lg *zap.Logger) error {
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	telegram, err := notify.NewTelegram(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	resolver, err := maps.NewResolver(cfg.Maps.APIKey, cfg.Maps.Language)
	if err != nil {
		return err
	}

	queue := jobs.NewQueue(redisClient)
	worker := jobs.NewWorker(queue, lg.Named("jobs"), cfg.Jobs.PollInterval, cfg.Jobs.BatchSize)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool))
	riderSvc := rider.NewService(rider.NewStore(dbPool), cfg.Points.WelcomePoints)
	driverSvc := driver.NewService(driver.NewStore(dbPool), telegram, lg.Named("driver"))
	marketSvc := market.NewService(market.NewStore(dbPool))

	orderStore := order.NewStore(dbPool)
	dispatchSvc := dispatch.NewService(
		dispatch.NewStore(redisClient),
		orderStore,
		driverSvc,
		queue,
		telegram,
		dispatch.Config{
			ChannelID:       types.TelegramID(cfg.Telegram.OrdersChannelID),
			BotLink:         cfg.Telegram.BotLink,
			EscalationDelay: cfg.Dispatch.EscalationDelay,
			FanOutLimit:     cfg.Dispatch.FanOutLimit,
		},
		lg.Named("dispatch"),
	)
	orderSvc := order.NewService(orderStore, order.Deps{
		Resolver:      resolver,
		Pricing:       pricingSvc,
		Drivers:       driverSvc,
		Dispatcher:    dispatchSvc,
		Messenger:     telegram,
		ServiceCities: cfg.ServiceCities,
	}, lg.Named("order"))

	ledgerSvc := ledger.NewService(
		ledger.NewStore(dbPool),
		ledger.NewStripeProvider(cfg.Payments.StripeKey),
		ledger.Deps{
			Orders:    orderSvc,
			Products:  marketSvc,
			Riders:    riderSvc,
			Pricing:   pricingSvc,
			Scheduler: queue,
			Messenger: telegram,
		},
		ledger.Config{
			Currency:             cfg.Payments.Currency,
			BotLink:              cfg.Telegram.BotLink,
			ProductPointsPercent: cfg.Points.ProductPointsPercent,
			FulfillmentChatID:    types.TelegramID(cfg.Telegram.FulfillmentChatID),
			PointsTTLDays:        cfg.Points.TTLDays,
			SweepHour:            cfg.Points.SweepHour,
			Location:             cfg.Points.Location,
		},
		lg.Named("ledger"),
	)
	reviewSvc := review.NewService(review.NewStore(dbPool), orderSvc, driverSvc, lg.Named("review"))

	worker.Register(jobs.KindDispatchOffer, dispatchSvc.HandleOffer)
	worker.Register(jobs.KindDispatchEscalate, dispatchSvc.HandleEscalation)
	worker.Register(jobs.KindPointsSweep, ledgerSvc.HandleSweep)
	if err := ledgerSvc.ScheduleSweep(ctx); err != nil {
		return err
	}

	b := bot.New(bot.Deps{
		Riders:    riderSvc,
		Drivers:   driverSvc,
		Orders:    orderSvc,
		Ledger:    ledgerSvc,
		Reviews:   reviewSvc,
		Market:    marketSvc,
		Messenger: telegram,
		Drafts:    bot.NewDraftStore(redisClient),
	}, bot.Config{
		PollTimeout: cfg.Telegram.PollTimeoutSeconds,
		Location:    cfg.Points.Location,
	}, lg.Named("bot"))

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.ServerDeps{
		Payments:   ledgerSvc,
		Moderation: driverSvc,
		Pricing:    pricingSvc,
		Catalog:    marketSvc,
		AdminToken: cfg.Admin.Token,
		Logger:     lg.Named("http"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return b.Run(gctx, telegram.API())
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	lg.Info("TaxiDriverBot started", zap.String("env", cfg.Env), zap.String("http_addr", cfg.HTTP.Addr))
	return g.Wait()
}
