package duel_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
)

func TestTryStartRejections(t *testing.T) {
	h := newHarness(t, duel.WithIneligible("bot"))

	_, err := h.reg.TryStart(h.ctx, alice, alice, "room-1", duel.ColorWhite)
	assert.ErrorIs(t, err, duel.ErrSelfChallenge)

	_, err = h.reg.TryStart(h.ctx, alice, duel.Player{ID: "bot"}, "room-1", duel.ColorWhite)
	assert.ErrorIs(t, err, duel.ErrInvalidOpponent)

	_, err = h.reg.TryStart(h.ctx, alice, duel.Player{}, "room-1", duel.ColorWhite)
	assert.ErrorIs(t, err, duel.ErrInvalidOpponent)

	_, err = h.reg.TryStart(h.ctx, alice, bob, "room-1", duel.ColorWhite)
	require.NoError(t, err)

	_, err = h.reg.TryStart(h.ctx, alice, carol, "room-1", duel.ColorWhite)
	assert.ErrorIs(t, err, duel.ErrChallengerBusy)
	_, err = h.reg.TryStart(h.ctx, carol, bob, "room-1", duel.ColorWhite)
	assert.ErrorIs(t, err, duel.ErrTargetBusy)
	assert.False(t, h.reg.Busy(carol.ID))
}

func TestAcceptOnlyByAddressee(t *testing.T) {
	h := newHarness(t)
	offer, err := h.reg.TryStart(h.ctx, alice, bob, "room-1", duel.ColorBlack)
	require.NoError(t, err)

	_, err = h.reg.Accept(h.ctx, offer.ID, alice.ID)
	assert.ErrorIs(t, err, duel.ErrNotAddressee)

	st, err := h.reg.Accept(h.ctx, offer.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, st.White)
	assert.Equal(t, alice, st.Black)
	assert.Equal(t, duel.White, st.SideToMove)
	assert.Equal(t, 10*time.Minute, st.WhiteClock)
	assert.Equal(t, duel.PhaseActive, st.Phase)

	key, ok := h.reg.SessionOf(alice.ID)
	assert.True(t, ok)
	assert.Equal(t, st.Key, key)
	key, ok = h.reg.SessionIn(alice.ID, st.Room)
	assert.True(t, ok)
	assert.Equal(t, st.Key, key)
	_, ok = h.reg.SessionIn(alice.ID, "elsewhere")
	assert.False(t, ok)

	_, err = h.reg.Accept(h.ctx, offer.ID, bob.ID)
	assert.ErrorIs(t, err, duel.ErrOfferNotFound)
}

func TestDeclineAndCancelRelease(t *testing.T) {
	h := newHarness(t)
	offer, err := h.reg.TryStart(h.ctx, alice, bob, "room-1", duel.ColorWhite)
	require.NoError(t, err)

	got, ok := h.reg.OfferFor(bob.ID)
	require.True(t, ok)
	assert.Equal(t, offer.ID, got.ID)

	_, err = h.reg.Decline(h.ctx, offer.ID, alice.ID)
	assert.ErrorIs(t, err, duel.ErrNotAddressee)

	declined, err := h.reg.Decline(h.ctx, offer.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, duel.OfferDeclined, declined.Status)
	assert.False(t, h.reg.Busy(alice.ID))
	assert.False(t, h.reg.Busy(bob.ID))
	assert.Equal(t, 0, h.reg.Len())

	offer, err = h.reg.TryStart(h.ctx, alice, bob, "room-1", duel.ColorWhite)
	require.NoError(t, err)
	_, err = h.reg.Cancel(h.ctx, offer.ID, bob.ID)
	assert.ErrorIs(t, err, duel.ErrNotParticipant)
	cancelled, err := h.reg.Cancel(h.ctx, offer.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, duel.OfferCancelled, cancelled.Status)
	assert.False(t, h.reg.Busy(alice.ID))
}

func TestOfferExpiresAfterTTL(t *testing.T) {
	h := newHarness(t, duel.WithOfferTTL(20*time.Millisecond))
	_, err := h.reg.TryStart(h.ctx, alice, bob, "room-1", duel.ColorWhite)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.notifier.expiredCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, h.reg.Busy(alice.ID))
	assert.False(t, h.reg.Busy(bob.ID))
}

func TestConcurrentEndEmitsOneRecord(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	const n = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		records int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var got bool
			if i%2 == 0 {
				got = h.reg.End(h.ctx, key, domain.ReasonInactivity, duel.NoColor) != nil
			} else {
				out, err := h.disp.Resign(h.ctx, key, bob.ID)
				got = err == nil && out.Record != nil
			}
			if got {
				mu.Lock()
				records++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, records)
	assert.Len(t, h.recorder.all(), 1)
	assert.False(t, h.reg.Busy(alice.ID))
	assert.False(t, h.reg.Busy(bob.ID))
	assert.Equal(t, 0, h.reg.Len())

	// players are free to start again
	_, err := h.reg.TryStart(h.ctx, bob, alice, "room-1", duel.ColorWhite)
	assert.NoError(t, err)
}

func TestEndUnknownKeyIsNoop(t *testing.T) {
	h := newHarness(t)
	assert.Nil(t, h.reg.End(h.ctx, "missing", domain.ReasonResignation, duel.White))
	assert.Empty(t, h.recorder.all())
}

func TestAcceptAsFillsAddresseeName(t *testing.T) {
	h := newHarness(t)
	offer, err := h.reg.TryStart(h.ctx, alice, duel.Player{ID: bob.ID}, "room-1", duel.ColorWhite)
	require.NoError(t, err)

	st, err := h.reg.AcceptAs(h.ctx, offer.ID, duel.Player{ID: bob.ID, Name: "Robert"})
	require.NoError(t, err)
	assert.Equal(t, "Robert", st.Black.Name)
	assert.Equal(t, alice, st.White)
}
