package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/scoremash/internal/config"
	h "github.com/fjod/scoremash/internal/http"
	"github.com/fjod/scoremash/internal/mail"
	"github.com/fjod/scoremash/internal/publisher"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/fjod/scoremash/internal/service"
	"github.com/fjod/scoremash/internal/session"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 5 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server and the outbox publisher",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, store, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer disconnect(store, log)

	if err := repository.RunMigrations(store.DB); err != nil {
		return err
	}
	log.Info("database migrations completed")

	redisClient, err := session.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	log.WithField("addr", cfg.RedisAddr).Info("connected to Redis")

	shipping, err := cfg.Shipping()
	if err != nil {
		return errors.Wrap(err, "shipping cost")
	}

	cart := service.NewCartService(store.Accounts, store.Products, log)
	ledger := service.NewStockLedger(store.Products, store.Reservations, store.Orders, store.Outbox, cfg.ReservationTTL, log)
	checkout := service.NewCheckoutService(store.Accounts, store.Products, store.Orders, cart, ledger, log,
		service.WithShippingCost(shipping),
		service.WithTaxPercent(cfg.TaxPercent),
	)
	accounts := service.NewAccountService(store.Accounts, service.AdminCredentials{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, log)
	catalog := service.NewCatalogService(store.Products, store.Accounts)
	orders := service.NewOrderService(store.Orders, log)

	sessions := h.NewSessionManager(
		session.NewRedisStore(redisClient, cfg.SessionTTL),
		cfg.SessionCookie, cfg.SessionTTL, cfg.SecureCookies, log,
	)

	router := h.NewRouter(h.RouterConfig{
		ServiceName:    "scoremash",
		RequestTimeout: cfg.RequestTimeout,
		Sessions:       sessions,
		Log:            log,
	}, h.Handlers{
		Cart:     h.NewCartHandler(cart, sessions, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Checkout: h.NewCheckoutHandler(checkout, sessions, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Auth:     h.NewAuthHandler(accounts, sessions, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Settings: h.NewSettingsHandler(accounts, sessions, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Shop:     h.NewShopHandler(catalog, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Orders:   h.NewOrdersHandler(orders, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
	})

	poller := newPoller(cfg, store, ledger, log)
	defer func() {
		if err := poller.Close(); err != nil {
			log.WithError(err).Warn("close publisher")
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		poller.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.WithField("port", cfg.HTTPPort).Info("scoremash starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}

func newPoller(cfg *config.Config, store *repository.Store, ledger *service.StockLedger, log logrus.FieldLogger) *publisher.OutboxPoller {
	opts := []publisher.Option{publisher.WithIntervals(cfg.OutboxInterval, cfg.RecoveryInterval)}

	if cfg.PublishingEnabled() {
		opts = append(opts, publisher.WithKafka(publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)))
		log.WithField("topic", cfg.KafkaTopic).Info("order events publishing to Kafka")
	} else {
		log.Warn("SCOREMASH_KAFKA_BROKERS not set, order events stay in the outbox")
	}

	if cfg.MailEnabled() {
		client := mail.NewSendGridClient(cfg.SendGridAPIKey, "ScoreMash")
		opts = append(opts, publisher.WithNotifier(mail.NewOrderMailer(client, cfg.MailFrom)))
	} else {
		log.Warn("SCOREMASH_SENDGRID_API_KEY not set, order emails disabled")
	}

	return publisher.NewOutboxPoller(store.Outbox, store.Accounts, ledger, log, opts...)
}
