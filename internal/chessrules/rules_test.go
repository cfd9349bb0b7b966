package chessrules

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/duel"
)

func play(t *testing.T, r *Rules, pos duel.Position, uci ...string) (duel.Position, []string) {
	t.Helper()
	var sans []string
	for _, s := range uci {
		mv, err := duel.ParseMove(s)
		require.NoError(t, err)
		next, san, err := r.Apply(pos, mv)
		require.NoError(t, err, "apply %s", s)
		pos = next
		sans = append(sans, san)
	}
	return pos, sans
}

func TestFoolsMate(t *testing.T) {
	r := New()
	pos, err := r.NewPosition()
	require.NoError(t, err)
	assert.Equal(t, duel.White, r.SideToMove(pos))

	end, sans := play(t, r, pos, "f2f3", "e7e5", "g2g4", "d8h4")
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, sans)

	v, err := r.Status(end)
	require.NoError(t, err)
	assert.Equal(t, duel.Black, v.Winner)
	assert.Equal(t, "checkmate", v.Method)

	// the starting position is untouched
	v, err = r.Status(pos)
	require.NoError(t, err)
	assert.True(t, v.Ongoing())
	assert.Equal(t, duel.White, r.SideToMove(pos))
}

func TestLegalMovesIncludePromotions(t *testing.T) {
	r := New()
	pos, err := r.FromFEN("8/4P3/8/8/8/8/k7/7K w - - 0 1")
	require.NoError(t, err)
	moves, err := r.LegalMoves(pos)
	require.NoError(t, err)

	promos := map[string]bool{}
	for _, mv := range moves {
		if mv.From == "e7" && mv.To == "e8" {
			promos[mv.Promotion] = true
		}
	}
	assert.Equal(t, map[string]bool{"q": true, "r": true, "b": true, "n": true}, promos)
}

func TestEncodeRecord(t *testing.T) {
	r := New()
	pgn, err := r.EncodeRecord(duel.RecordHeader{
		Event:       "Kakao Duel",
		Date:        time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		White:       `Al"ice`,
		Black:       "Bob",
		Result:      "0-1",
		Termination: "Checkmate",
	}, []string{"f3", "e5", "g4", "Qh4#"})
	require.NoError(t, err)

	assert.Contains(t, pgn, `[Date "2026.03.04"]`)
	assert.Contains(t, pgn, `[White "Al'ice"]`)
	assert.Contains(t, pgn, `[Site "?"]`)
	assert.Contains(t, pgn, `[Termination "checkmate"]`)
	assert.True(t, strings.HasSuffix(pgn, "1. f3 e5 2. g4 Qh4# 0-1"), pgn)
}

func TestForeignPositionRejected(t *testing.T) {
	r := New()
	_, err := r.LegalMoves("not a position")
	assert.ErrorIs(t, err, errForeignPosition)
}

func TestStatusClaimsThreefoldRepetition(t *testing.T) {
	r := New()
	pos, err := r.NewPosition()
	require.NoError(t, err)
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}

	once, _ := play(t, r, pos, shuffle...)
	v, err := r.Status(once)
	require.NoError(t, err)
	assert.True(t, v.Ongoing(), "second occurrence is not yet claimable")

	twice, _ := play(t, r, once, shuffle...)
	v, err = r.Status(twice)
	require.NoError(t, err)
	assert.True(t, v.Draw)
	assert.Equal(t, duel.NoColor, v.Winner)
	assert.Equal(t, "threefold repetition", v.Method)
}
