package duel_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
)

func TestMoveAfterBudgetExhaustedIsTimeout(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	h.clock.Advance(601 * time.Second)
	out := h.move(t, key, alice, "e2e4")

	require.Equal(t, duel.OutcomeEnded, out.Kind)
	rec := out.Record
	require.NotNil(t, rec)
	assert.Equal(t, domain.ReasonTimeout, rec.Reason)
	assert.Equal(t, bob.ID, rec.WinnerID)
	assert.Equal(t, alice.ID, rec.LoserID)
	assert.Equal(t, domain.ResultBlackWins, rec.Result)
	assert.Empty(t, rec.MovesUCI)
	assert.Equal(t, time.Duration(0), out.State.WhiteClock)
	assert.Len(t, h.recorder.all(), 1)
	assert.False(t, h.reg.Busy(alice.ID))

	_, err := h.disp.Resign(h.ctx, key, bob.ID)
	assert.ErrorIs(t, err, duel.ErrGameOver)
}

func TestTurnAndParticipantChecks(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	mv, _ := duel.ParseMove("e7e5")
	_, err := h.disp.SubmitMove(h.ctx, key, bob.ID, mv)
	assert.ErrorIs(t, err, duel.ErrNotYourTurn)

	_, err = h.disp.SubmitMove(h.ctx, key, carol.ID, mv)
	assert.ErrorIs(t, err, duel.ErrNotParticipant)

	_, err = h.disp.QueryTime(h.ctx, key, carol.ID)
	assert.ErrorIs(t, err, duel.ErrNotParticipant)
}

func TestIllegalMoveLeavesStateAndChargesLater(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	h.clock.Advance(5 * time.Second)
	bad, _ := duel.ParseMove("e2e5")
	_, err := h.disp.SubmitMove(h.ctx, key, alice.ID, bad)
	assert.ErrorIs(t, err, duel.ErrIllegalMove)

	h.clock.Advance(5 * time.Second)
	out := h.move(t, key, alice, "e2e4")
	assert.Equal(t, duel.OutcomeUpdated, out.Kind)
	assert.Equal(t, "e4", out.SAN)
	assert.Equal(t, 590*time.Second, out.State.WhiteClock)
	assert.Equal(t, 600*time.Second, out.State.BlackClock)
	assert.Equal(t, duel.Black, out.State.SideToMove)
	assert.Equal(t, 1, out.State.MovesMade)
	require.NotNil(t, out.State.LastMove)
	assert.Equal(t, "e2e4", out.State.LastMove.UCI())
}

func TestDrawOfferThenAccept(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	out, err := h.disp.OfferOrAcceptDraw(h.ctx, key, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, duel.OutcomeDrawOffered, out.Kind)
	assert.Equal(t, alice.ID, out.State.DrawOfferBy)

	out, err = h.disp.OfferOrAcceptDraw(h.ctx, key, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, duel.OutcomeAlreadyOffered, out.Kind)

	out, err = h.disp.OfferOrAcceptDraw(h.ctx, key, bob.ID)
	require.NoError(t, err)
	require.Equal(t, duel.OutcomeEnded, out.Kind)
	assert.Equal(t, domain.ReasonDraw, out.Record.Reason)
	assert.Equal(t, domain.ResultDraw, out.Record.Result)
	assert.Empty(t, out.Record.WinnerID)
	assert.Contains(t, out.Record.PGN, `[Result "1/2-1/2"]`)
}

func TestDrawOfferSurvivesMoves(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	h.move(t, key, alice, "e2e4")
	_, err := h.disp.OfferOrAcceptDraw(h.ctx, key, alice.ID)
	require.NoError(t, err)

	out := h.move(t, key, bob, "e7e5")
	assert.Equal(t, alice.ID, out.State.DrawOfferBy)
	out = h.move(t, key, alice, "g1f3")
	assert.Equal(t, alice.ID, out.State.DrawOfferBy)

	out, err = h.disp.OfferOrAcceptDraw(h.ctx, key, bob.ID)
	require.NoError(t, err)
	require.Equal(t, duel.OutcomeEnded, out.Kind)
	assert.Equal(t, domain.ReasonDraw, out.Record.Reason)
	assert.Equal(t, domain.ResultDraw, out.Record.Result)
	assert.False(t, h.reg.Busy(alice.ID))
	assert.False(t, h.reg.Busy(bob.ID))
}

func TestPromotionRoundTrip(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	line := []string{"e2e4", "d7d5", "e4d5", "c7c6", "d5c6", "g8f6", "c6b7", "b8d7"}
	for i, uci := range line {
		p := alice
		if i%2 == 1 {
			p = bob
		}
		h.move(t, key, p, uci)
	}

	_, err := h.disp.Promote(h.ctx, key, alice.ID, "q")
	assert.ErrorIs(t, err, duel.ErrNoPendingPromotion)

	h.clock.Advance(3 * time.Second)
	out := h.move(t, key, alice, "b7a8")
	require.Equal(t, duel.OutcomeAwaitingPromotion, out.Kind)
	assert.True(t, out.State.AwaitingPromotion)
	assert.Equal(t, duel.White, out.State.SideToMove)
	assert.Equal(t, 597*time.Second, out.State.WhiteClock)

	_, err = h.disp.Promote(h.ctx, key, bob.ID, "q")
	assert.ErrorIs(t, err, duel.ErrNotYourTurn)

	h.clock.Advance(2 * time.Second)
	out, err = h.disp.Promote(h.ctx, key, alice.ID, "q")
	require.NoError(t, err)
	assert.Equal(t, duel.OutcomeUpdated, out.Kind)
	assert.Equal(t, "bxa8=Q", out.SAN)
	assert.Equal(t, "b7a8q", out.State.MovesUCI[len(out.State.MovesUCI)-1])
	assert.Equal(t, 595*time.Second, out.State.WhiteClock)
	assert.False(t, out.State.AwaitingPromotion)
}

func TestCheckmateEndsAndRecords(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	h.move(t, key, alice, "f2f3")
	h.move(t, key, bob, "e7e5")
	h.move(t, key, alice, "g2g4")
	out := h.move(t, key, bob, "d8h4")

	require.Equal(t, duel.OutcomeEnded, out.Kind)
	rec := out.Record
	assert.Equal(t, domain.ReasonCheckmate, rec.Reason)
	assert.Equal(t, bob.ID, rec.WinnerID)
	assert.Equal(t, domain.ResultBlackWins, rec.Result)
	assert.Equal(t, []string{"f2f3", "e7e5", "g2g4", "d8h4"}, rec.MovesUCI)
	assert.Equal(t, 4, out.State.MovesMade)
	assert.True(t, strings.HasSuffix(rec.PGN, "2. g4 Qh4# 0-1"), rec.PGN)
	assert.Len(t, h.recorder.all(), 1)
}

func TestLegalTargets(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	moves, err := h.disp.LegalTargets(h.ctx, key, alice.ID, "g1")
	require.NoError(t, err)
	var to []string
	for _, mv := range moves {
		to = append(to, mv.To)
	}
	assert.ElementsMatch(t, []string{"f3", "h3"}, to)

	_, err = h.disp.LegalTargets(h.ctx, key, bob.ID, "g8")
	assert.ErrorIs(t, err, duel.ErrNotYourTurn)
}

func TestQueryTimeIsReadOnly(t *testing.T) {
	h := newHarness(t)
	key := h.start(t)

	h.clock.Advance(30 * time.Second)
	out, err := h.disp.QueryTime(h.ctx, key, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, duel.OutcomeTimeReport, out.Kind)
	assert.Equal(t, 570*time.Second, out.State.WhiteClock)

	// querying twice charges nothing extra
	out, err = h.disp.QueryTime(h.ctx, key, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 570*time.Second, out.State.WhiteClock)

	h.clock.Advance(10 * time.Second)
	mv := h.move(t, key, alice, "d2d4")
	assert.Equal(t, 560*time.Second, mv.State.WhiteClock)
}
