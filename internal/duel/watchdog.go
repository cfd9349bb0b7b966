package duel

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/domain"
)

const (
	DefaultWatchdogInterval    = 10 * time.Second
	DefaultInactivityThreshold = 120 * time.Second
)

// Watchdog periodically ends sessions that went idle before the early abort
// window closed. Optionally it also ends sessions whose side to move ran out of time.
type Watchdog struct {
	reg       *Registry
	interval  time.Duration
	threshold time.Duration
	flagFall  bool
	logger    *zap.Logger
}

type WatchdogOption func(*Watchdog)

func WithInterval(d time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithInactivityThreshold(d time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		if d > 0 {
			w.threshold = d
		}
	}
}

// WithFlagFallSweep makes the sweep end games on time even if the player on move never acts.
func WithFlagFallSweep(on bool) WatchdogOption {
	return func(w *Watchdog) { w.flagFall = on }
}

func NewWatchdog(reg *Registry, opts ...WatchdogOption) *Watchdog {
	w := &Watchdog{
		reg:       reg,
		interval:  DefaultWatchdogInterval,
		threshold: DefaultInactivityThreshold,
		logger:    reg.logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps every interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	w.logger.Info("duel_watchdog_start",
		zap.Duration("interval", w.interval),
		zap.Duration("threshold", w.threshold),
		zap.Bool("flag_fall", w.flagFall),
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			w.Sweep(ctx, w.reg.now())
		}
	}
}

// Sweep checks every live session once and returns how many it ended.
// A failure on one session does not stop the scan.
func (w *Watchdog) Sweep(ctx context.Context, now time.Time) int {
	ended := 0
	for _, s := range w.reg.snapshot() {
		ev, err := w.check(s, now)
		if err != nil {
			w.logger.Error("duel_watchdog_error", zap.String("game_id", s.Key()), zap.Error(err))
			continue
		}
		if ev == nil {
			continue
		}
		ended++
		w.reg.publish(ctx, ev.Record)
		w.notify(ctx, *ev)
	}
	return ended
}

func (w *Watchdog) check(s *Session, now time.Time) (ev *Ended, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("watchdog panic: %v", p)
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive {
		return nil, nil
	}

	var rec *domain.GameRecord
	switch {
	case s.earlyAbortOK && now.Sub(s.lastAction) > w.threshold:
		rec = w.reg.endLocked(s, now, domain.ReasonInactivity, NoColor, "")
	case w.flagFall:
		turn := w.reg.rules.SideToMove(s.pos)
		clock := s.clock.Projected(now, turn)
		if loser, expired := clock.Expired(turn); expired {
			s.clock = clock
			rec = w.reg.endLocked(s, now, domain.ReasonTimeout, loser.Opponent(), "")
		}
	}
	if rec == nil {
		return nil, nil
	}
	return &Ended{Record: rec, State: s.stateLocked(w.reg.rules, now)}, nil
}

func (w *Watchdog) notify(ctx context.Context, ev Ended) {
	defer func() {
		if p := recover(); p != nil {
			w.logger.Error("duel_notify_panic", zap.String("game_id", ev.Record.Key), zap.Any("panic", p))
		}
	}()
	w.reg.notifier.SessionEnded(ctx, ev)
}
