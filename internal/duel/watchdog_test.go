package duel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
)

func TestWatchdogEndsIdleEarlyGame(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)
	h.move(t, key, alice, "e2e4")

	h.clock.Advance(120 * time.Second)
	assert.Equal(t, 0, h.dog.Sweep(h.ctx, h.clock.Now()))

	h.clock.Advance(time.Second)
	assert.Equal(t, 1, h.dog.Sweep(h.ctx, h.clock.Now()))

	require.Len(t, h.notifier.ended, 1)
	rec := h.notifier.ended[0].Record
	assert.Equal(t, domain.ReasonInactivity, rec.Reason)
	assert.Equal(t, domain.ResultAborted, rec.Result)
	assert.Empty(t, rec.WinnerID)
	assert.Equal(t, "room-1", h.notifier.ended[0].State.Room)
	assert.Len(t, h.recorder.all(), 1)
	assert.False(t, h.reg.Busy(alice.ID))

	// a second sweep finds nothing
	assert.Equal(t, 0, h.dog.Sweep(h.ctx, h.clock.Now()))
}

func TestWatchdogSparesGamesPastEarlyAbort(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)
	h.move(t, key, alice, "e2e4")
	h.move(t, key, bob, "e7e5")

	h.clock.Advance(130 * time.Second)
	assert.Equal(t, 0, h.dog.Sweep(h.ctx, h.clock.Now()))

	out, err := h.disp.Resign(h.ctx, key, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonResignation, out.Record.Reason)
	assert.Equal(t, bob.ID, out.Record.WinnerID)
	assert.Equal(t, domain.ResultBlackWins, out.Record.Result)
}

func TestWatchdogFlagFallSweep(t *testing.T) {
	h := newHarness(t, duel.WithInitialClock(time.Minute))
	dog := duel.NewWatchdog(h.reg, duel.WithFlagFallSweep(true), duel.WithInactivityThreshold(time.Hour))
	key := h.start(t)
	h.move(t, key, alice, "e2e4")
	h.move(t, key, bob, "e7e5")

	h.clock.Advance(59 * time.Second)
	assert.Equal(t, 0, dog.Sweep(h.ctx, h.clock.Now()))

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 1, dog.Sweep(h.ctx, h.clock.Now()))
	rec := h.notifier.ended[0].Record
	assert.Equal(t, domain.ReasonTimeout, rec.Reason)
	assert.Equal(t, bob.ID, rec.WinnerID)
}

func TestWatchdogRunStopsWithContext(t *testing.T) {
	h := newHarness(t)
	dog := duel.NewWatchdog(h.reg, duel.WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := dog.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
