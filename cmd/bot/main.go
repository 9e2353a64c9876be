package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hray3182/remindline/internal/bot"
	"github.com/hray3182/remindline/internal/bot/handlers"
	"github.com/hray3182/remindline/internal/config"
	"github.com/hray3182/remindline/internal/lease"
	"github.com/hray3182/remindline/internal/logging"
	"github.com/hray3182/remindline/internal/repository"
	"github.com/hray3182/remindline/internal/scheduler"
	"github.com/hray3182/remindline/internal/transport"
)

// Extra lease lifetime on top of delivery and commit, so a slow but alive
// holder never loses its lease to another replica.
const leaseMargin = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}

// leaseTTL covers the rate limit wait and the HTTP send (each bounded by
// DeliveryTimeout) plus the commit.
func leaseTTL(cfg *config.Config) time.Duration {
	return 2*cfg.DeliveryTimeout + scheduler.DefaultCommitTimeout + leaseMargin
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	stores, err := repository.Open(ctx, cfg.DatabaseURI, log)
	if err != nil {
		return err
	}
	defer stores.Close()
	log.Info().Str("driver", stores.Driver).Msg("connected to database")

	var locker lease.Locker = lease.NewLocal()
	if cfg.RedisURL != "" {
		rdb, err := lease.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lease.NewRedis(rdb, leaseTTL(cfg))
		log.Info().Msg("using redis leases")
	}

	// Long polling holds a request open for up to a minute, so updates and
	// replies use their own client.
	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint,
		&http.Client{Timeout: bot.PollTimeout + cfg.DeliveryTimeout})
	if err != nil {
		return err
	}
	// The Bot API client takes no context; the HTTP timeout bounds every
	// send, so a reminder never reaches the user after its attempt gave up.
	deliveryAPI, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint,
		&http.Client{Timeout: cfg.DeliveryTimeout})
	if err != nil {
		return err
	}

	sched := scheduler.New(stores.Reminders, transport.NewTelegram(deliveryAPI, cfg.SendRatePerSec), locker, scheduler.Config{
		PollInterval:    cfg.PollInterval,
		DeliveryTimeout: cfg.DeliveryTimeout,
		StartupDelay:    cfg.StartupDelay,
		Workers:         cfg.DeliveryWorkers,
		Location:        cfg.Location(),
	}, log)

	repos := &handlers.Repositories{
		Reminder: stores.Reminders,
		Settings: stores.Settings,
	}
	b := bot.New(api, handlers.New(api, repos, sched, cfg, log), log)

	if err := sched.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		return sched.Stop(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
