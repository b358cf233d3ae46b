package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// PreferenceStore is the read side of preference storage the loop needs.
type PreferenceStore interface {
	PreferenceLookup
	ListUserIDs(ctx context.Context) ([]string, error)
}

// MessageSource builds the morning plan text sent to every recipient.
type MessageSource interface {
	MorningMessage(ctx context.Context) (string, error)
}

// Sender delivers a text to one user. telegram.Sender implements this.
type Sender interface {
	SendMessage(ctx context.Context, userID, text string) error
}

// Config controls the notification loop.
type Config struct {
	Enabled           bool
	DefaultTime       string   // HH:MM, server time
	DefaultRecipients []string // chat ids

	RecalcInterval  time.Duration // plan staleness bound
	PollInterval    time.Duration // longest single sleep
	ErrorBackoff    time.Duration // sleep after a failed iteration
	CoalesceWindow  time.Duration // batch tolerance around the fire instant
	SendConcurrency int
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultTime:     "08:00",
		RecalcInterval:  5 * time.Minute,
		PollInterval:    time.Minute,
		ErrorBackoff:    time.Minute,
		CoalesceWindow:  time.Minute,
		SendConcurrency: 8,
	}
}

// Scheduler is the long-running notification loop. A single goroutine owns
// the plan; other goroutines only touch the atomic run-state through Start
// and RequestRecalculation.
type Scheduler struct {
	cfg     Config
	store   PreferenceStore
	source  MessageSource
	sender  Sender
	planner *Planner
	log     *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	running atomic.Bool
	force   atomic.Bool
	wake    chan struct{}

	// loop-owned state
	lastRecalc time.Time
	plan       Plan
	delivered  map[string]time.Time // user id -> last dispatched instant
}

// New creates a Scheduler. Zero timings in cfg are replaced by DefaultConfig values.
func New(cfg Config, store PreferenceStore, source MessageSource, sender Sender, zones domain.ZoneResolver, log *zap.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.RecalcInterval <= 0 {
		cfg.RecalcInterval = def.RecalcInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.CoalesceWindow <= 0 {
		cfg.CoalesceWindow = def.CoalesceWindow
	}
	if cfg.SendConcurrency <= 0 {
		cfg.SendConcurrency = def.SendConcurrency
	}

	s := &Scheduler{
		cfg:       cfg,
		store:     store,
		source:    source,
		sender:    sender,
		planner:   NewPlanner(zones, log),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		wake:      make(chan struct{}, 1),
		delivered: make(map[string]time.Time),
	}
	s.sleep = s.wait
	return s
}

// Start launches the loop in a goroutine. It returns false when the feature
// is disabled or a loop is already running. The loop stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) bool {
	if !s.cfg.Enabled {
		s.log.Info("morning notifications are disabled")
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("scheduler already running")
		return false
	}
	s.log.Info("starting morning notification scheduler",
		zap.String("default_time", s.cfg.DefaultTime),
		zap.Strings("default_recipients", s.cfg.DefaultRecipients),
	)
	go func() {
		defer s.running.Store(false)
		s.Run(ctx)
	}()
	return true
}

// Running reports whether the loop goroutine is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RequestRecalculation asks the loop to re-plan on its next pass and cuts
// its current sleep short. Safe for concurrent use; calls made before the
// loop consumes the signal collapse into one recalculation.
func (s *Scheduler) RequestRecalculation() {
	s.force.Store(true)
	select {
	case s.wake <- struct{}{}:
	default:
		// a wake-up is already pending
	}
	s.log.Info("forcing notification time recalculation")
}

// Run executes iterations until ctx is canceled. A failed iteration is
// logged and followed by ErrorBackoff; it never ends the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("morning notification scheduler loop started")
	for {
		if ctx.Err() != nil {
			s.log.Info("scheduler stopping")
			return
		}
		if err := s.safeIterate(ctx); err != nil {
			s.log.Error("scheduler iteration failed", zap.Error(err))
			s.sleep(ctx, s.cfg.ErrorBackoff)
		}
	}
}

func (s *Scheduler) safeIterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in scheduler iteration: %v", r)
		}
	}()
	return s.iterate(ctx)
}

// iterate runs one pass: re-plan if due, wait toward the earliest target
// for at most PollInterval, and dispatch when the whole wait elapsed.
func (s *Scheduler) iterate(ctx context.Context) error {
	now := s.now()

	if s.recalcDue(now) {
		forced := s.force.Swap(false)
		s.log.Info("recalculating notification times", zap.Bool("forced", forced))
		s.lastRecalc = now
		plan, err := s.replan(ctx, now)
		if err != nil {
			// retry on the pass after the backoff
			s.lastRecalc = time.Time{}
			s.plan = nil
			return err
		}
		s.plan = plan
	}

	_, next, ok := s.plan.Earliest()
	if !ok {
		s.log.Debug("no users to notify, checking again later", zap.Duration("in", s.cfg.PollInterval))
		s.sleep(ctx, s.cfg.PollInterval)
		return nil
	}

	wait := next.At.Sub(now)
	if wait < 0 {
		wait = 0
	}
	capped := min(wait, s.cfg.PollInterval)
	s.log.Debug("next notification",
		zap.Time("at", next.At),
		zap.Duration("wait", wait),
		zap.Duration("sleep", capped),
	)
	if !s.sleep(ctx, capped) || capped < wait {
		return nil
	}

	s.log.Info("notification time reached", zap.Time("at", next.At), zap.Time("now", s.now()))
	return s.fire(ctx, next.At)
}

func (s *Scheduler) recalcDue(now time.Time) bool {
	return s.lastRecalc.IsZero() ||
		now.Sub(s.lastRecalc) >= s.cfg.RecalcInterval ||
		s.force.Load()
}

// replan snapshots preferences and builds a fresh plan, leaving out users
// whose current target was already delivered.
func (s *Scheduler) replan(ctx context.Context, now time.Time) (Plan, error) {
	users, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users with preferences: %w", err)
	}
	s.log.Info("found users with preferences", zap.Int("count", len(users)))

	plan := s.planner.Plan(ctx, users, s.store, s.cfg.DefaultRecipients, s.cfg.DefaultTime, now)

	for id, at := range s.delivered {
		if ft, ok := plan[id]; ok && ft.At.Equal(at) {
			delete(plan, id)
		}
		// older than any target still inside the grace window
		if now.Sub(at) > 2*domain.GraceWindow {
			delete(s.delivered, id)
		}
	}

	if _, next, ok := plan.Earliest(); ok {
		s.log.Info("next notification scheduled",
			zap.Time("at", next.At),
			zap.Duration("in", next.Wait),
			zap.Int("planned_users", len(plan)),
		)
	}
	return plan, nil
}

// fire dispatches to the coalescing window around target and removes the
// batch from the retained plan.
func (s *Scheduler) fire(ctx context.Context, target time.Time) error {
	batch := s.plan.Window(target, s.cfg.CoalesceWindow)
	if len(batch) == 0 {
		return nil
	}

	text, err := s.source.MorningMessage(ctx)
	if err != nil {
		return fmt.Errorf("build morning message: %w", err)
	}

	s.dispatch(ctx, batch, text)

	for _, id := range batch {
		s.delivered[id] = s.plan[id].At
		delete(s.plan, id)
	}
	return nil
}

// dispatch sends text to every user in batch in parallel. A failure for one
// user never affects the others, so the group carries no shared context.
func (s *Scheduler) dispatch(ctx context.Context, batch []string, text string) {
	s.log.Info("sending notifications", zap.Int("users", len(batch)), zap.Strings("user_ids", batch))

	var (
		failed atomic.Int64
		g      errgroup.Group
	)
	g.SetLimit(s.cfg.SendConcurrency)
	for _, id := range batch {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
				if err != nil {
					failed.Add(1)
					s.log.Error("send notification failed",
						zap.String("user_id", id),
						zap.Error(fmt.Errorf("%w: %w", domain.ErrDispatchFailure, err)),
					)
				}
			}()
			return s.sender.SendMessage(ctx, id, text)
		})
	}
	_ = g.Wait()

	s.log.Info("notifications sent",
		zap.Int64("sent", int64(len(batch))-failed.Load()),
		zap.Int("total", len(batch)),
	)
}

// wait sleeps for d. It returns false when cut short by shutdown or by a
// recalculation request.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.wake:
		return false
	case <-ctx.Done():
		return false
	}
}
