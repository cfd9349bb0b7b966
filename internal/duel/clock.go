package duel

import (
	"fmt"
	"time"
)

// DefaultInitialClock is the per-side budget when nothing is configured.
const DefaultInitialClock = 10 * time.Minute

// Clock holds the remaining budget of both sides. It is a value type:
// callers settle a copy and commit it only when the turn transition succeeds.
type Clock struct {
	White    time.Duration
	Black    time.Duration
	LastTick time.Time
}

func NewClock(budget time.Duration, now time.Time) Clock {
	if budget <= 0 {
		budget = DefaultInitialClock
	}
	return Clock{White: budget, Black: budget, LastTick: now}
}

// Settle charges the time since the last tick to side and returns the amount charged.
// Remaining budgets never go below zero.
func (c *Clock) Settle(now time.Time, side Color) time.Duration {
	elapsed := now.Sub(c.LastTick)
	if elapsed < 0 {
		elapsed = 0
	}
	switch side {
	case White:
		c.White = clampZero(c.White - elapsed)
	case Black:
		c.Black = clampZero(c.Black - elapsed)
	}
	c.LastTick = now
	return elapsed
}

// Projected is a read-only view that includes the running turn of sideToMove.
func (c Clock) Projected(now time.Time, sideToMove Color) Clock {
	c.Settle(now, sideToMove)
	return c
}

func (c Clock) Remaining(side Color) time.Duration {
	if side == Black {
		return c.Black
	}
	return c.White
}

// Expired returns the side that lost on time. When both budgets are
// exhausted the side to move loses.
func (c Clock) Expired(sideToMove Color) (Color, bool) {
	if c.Remaining(sideToMove) <= 0 {
		return sideToMove, true
	}
	if other := sideToMove.Opponent(); other != NoColor && c.Remaining(other) <= 0 {
		return other, true
	}
	return NoColor, false
}

func (c Clock) Display(side Color) string { return FormatClock(c.Remaining(side)) }

// FormatClock renders MM:SS, rounding half-up to whole seconds.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := (d.Milliseconds() + 500) / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func clampZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
