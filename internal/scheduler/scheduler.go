package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindline/internal/format"
	"github.com/hray3182/remindline/internal/lease"
	"github.com/hray3182/remindline/internal/logging"
	"github.com/hray3182/remindline/internal/models"
	"github.com/hray3182/remindline/internal/recurrence"
	"github.com/hray3182/remindline/internal/repository"
	"github.com/hray3182/remindline/internal/transport"
	"github.com/hray3182/remindline/internal/worker"
)

// Store is the part of repository.ReminderStore the scheduler needs.
type Store interface {
	ListActive(ctx context.Context) ([]*models.Reminder, error)
	GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error)
	CountDeliveries(ctx context.Context, reminderID int64, from, to time.Time) (int, error)
	CompleteDelivery(ctx context.Context, reminder *models.Reminder, at time.Time) error
	Deactivate(ctx context.Context, reminderID int64) error
}

// Defaults applied to zero Config fields.
const (
	DefaultPollInterval    = 30 * time.Second
	DefaultDeliveryTimeout = 10 * time.Second
	DefaultCommitTimeout   = 5 * time.Second
	DefaultWorkers         = 4
)

type Config struct {
	PollInterval    time.Duration
	DeliveryTimeout time.Duration
	CommitTimeout   time.Duration
	StartupDelay    time.Duration
	Workers         int
	// Location is used for owners without a timezone setting.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if c.CommitTimeout <= 0 {
		c.CommitTimeout = DefaultCommitTimeout
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

type Scheduler struct {
	store  Store
	out    transport.Deliverer
	locker lease.Locker
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	pool     *worker.Pool
	notifyCh chan struct{}
	tickMu   sync.Mutex

	mu        sync.Mutex
	cron      *cron.Cron
	runCancel context.CancelFunc
	loopDone  chan struct{}
	halt      chan struct{}
}

func New(store Store, out transport.Deliverer, locker lease.Locker, cfg Config, log zerolog.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		store:    store,
		out:      out,
		locker:   locker,
		cfg:      cfg,
		log:      logging.Component(log, "scheduler"),
		now:      time.Now,
		pool:     worker.NewPool(cfg.Workers),
		notifyCh: make(chan struct{}, 1),
		halt:     make(chan struct{}),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

// Start launches the delivery workers, the periodic tick, and a warm-up tick
// after StartupDelay. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}
	select {
	case <-s.halt:
		return errors.New("scheduler already stopped")
	default:
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel
	s.pool.Start()

	cl := logging.CronLogger(s.log)
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	s.cron.Schedule(cron.Every(s.cfg.PollInterval), cron.FuncJob(func() { s.Tick(runCtx) }))
	s.cron.Start()

	s.loopDone = make(chan struct{})
	go s.loop(runCtx)

	s.log.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Int("workers", s.cfg.Workers).
		Msg("scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)

	// Wait a bit for the rest of the process to come up before the first check
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.cfg.StartupDelay):
	}
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notifyCh:
			s.log.Debug().Msg("scheduler triggered by notification")
			s.Tick(ctx)
		}
	}
}

// Stop ends scheduling, lets the current tick finish until ctx expires, then
// cancels outstanding deliveries. Deliveries that already succeeded are
// always recorded. A stopped Scheduler cannot be started again.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel, loopDone := s.cron, s.runCancel, s.loopDone
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	cancel()
	cronDone := c.Stop()

	var err error
	select {
	case <-cronDone.Done():
		select {
		case <-loopDone:
		case <-ctx.Done():
			err = ctx.Err()
		}
	case <-ctx.Done():
		err = ctx.Err()
	}

	close(s.halt)
	s.pool.Stop()
	<-loopDone

	if err != nil {
		s.log.Warn().Err(err).Msg("scheduler stopped before in-flight deliveries finished")
		return err
	}
	s.log.Info().Msg("scheduler stopped")
	return nil
}

// Tick runs one pass over all active reminders and returns once every due
// reminder has been handled. Overlapping calls return immediately.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.tickMu.TryLock() {
		s.log.Debug().Msg("previous tick still running, skipping")
		return
	}
	defer s.tickMu.Unlock()

	now := s.now()
	reminders, err := s.store.ListActive(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list active reminders")
		return
	}

	var (
		wg        sync.WaitGroup
		submitted int
	)
	for _, r := range reminders {
		loc := r.Location(s.cfg.Location)
		spec, err := r.Spec(loc)
		if err != nil {
			s.deactivate(ctx, r, s.recordLog(r), err)
			continue
		}
		// Quota counts are only read under the lease; zero is the most
		// permissive value, so this never drops a due reminder.
		if !recurrence.IsDue(spec, r.LastDeliveredAt, now, loc, 0) {
			continue
		}

		id := r.ID
		wg.Add(1)
		if !s.pool.Submit(ctx, func(jctx context.Context) {
			defer wg.Done()
			s.deliver(jctx, id)
		}) {
			wg.Done()
			break
		}
		submitted++
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-s.halt:
	}

	s.log.Debug().Int("active", len(reminders)).Int("due", submitted).Msg("tick complete")
}

// deliver re-evaluates one reminder under its lease and sends it if still due.
func (s *Scheduler) deliver(ctx context.Context, reminderID int64) {
	if ctx.Err() != nil {
		return
	}
	log := s.log.With().Int64("reminder_id", reminderID).Logger()

	release, ok, err := s.locker.Acquire(ctx, lease.ReminderKey(reminderID))
	if err != nil {
		log.Error().Err(err).Msg("failed to acquire reminder lease")
		return
	}
	if !ok {
		log.Debug().Msg("reminder is being handled elsewhere")
		return
	}
	defer release()

	r, err := s.store.GetByID(ctx, reminderID)
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load reminder")
		return
	}
	if !r.Active {
		return
	}
	log = s.recordLog(r)

	loc := r.Location(s.cfg.Location)
	spec, err := r.Spec(loc)
	if err != nil {
		s.deactivate(ctx, r, log, err)
		return
	}

	now := s.now()
	delivered := 0
	if from, to, ok := recurrence.QuotaWindow(spec, now, loc); ok {
		delivered, err = s.store.CountDeliveries(ctx, r.ID, from, to)
		if err != nil {
			log.Error().Err(err).Msg("failed to count deliveries")
			return
		}
	}
	if !recurrence.IsDue(spec, r.LastDeliveredAt, now, loc, delivered) {
		return
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	err = s.out.Deliver(dctx, r.UserID, format.Notification(r.Message, r.IsOnce()))
	cancel()
	if errors.Is(err, transport.ErrUnreachable) {
		s.deactivate(ctx, r, log, err)
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("delivery failed, will retry on next tick")
		return
	}

	// The message is out; record it even if shutdown has begun.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CommitTimeout)
	defer cancel()
	if err := s.store.CompleteDelivery(cctx, r, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug().Msg("reminder removed during delivery")
			return
		}
		log.Error().Err(err).Msg("failed to record delivery")
		return
	}
	log.Info().Str("frequency", r.Frequency).Msg("reminder delivered")
}

func (s *Scheduler) deactivate(ctx context.Context, r *models.Reminder, log zerolog.Logger, cause error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CommitTimeout)
	defer cancel()
	if err := s.store.Deactivate(dctx, r.ID); err != nil {
		log.Error().Err(err).AnErr("cause", cause).Msg("failed to deactivate reminder")
		return
	}
	log.Warn().Err(cause).Msg("reminder deactivated")
}

func (s *Scheduler) recordLog(r *models.Reminder) zerolog.Logger {
	return s.log.With().Int64("reminder_id", r.ID).Int64("user_id", r.UserID).Logger()
}
