package duel_test

import (
	"errors"
	"sync"

	"github.com/park285/chess-duel-bot/internal/chessrules"
	"github.com/park285/chess-duel-bot/internal/duel"
)

var errEngineDown = errors.New("engine unavailable")

// faultRules wraps the real rules with switchable failures.
type faultRules struct {
	*chessrules.Rules

	mu         sync.Mutex
	failApply  int
	panicWhite string
	startFEN   string
}

func (f *faultRules) NewPosition() (duel.Position, error) {
	if f.startFEN != "" {
		return f.Rules.FromFEN(f.startFEN)
	}
	return f.Rules.NewPosition()
}

func (f *faultRules) Apply(pos duel.Position, mv duel.Move) (duel.Position, string, error) {
	f.mu.Lock()
	fail := f.failApply > 0
	if fail {
		f.failApply--
	}
	f.mu.Unlock()
	if fail {
		return nil, "", errEngineDown
	}
	return f.Rules.Apply(pos, mv)
}

func (f *faultRules) EncodeRecord(h duel.RecordHeader, sanMoves []string) (string, error) {
	if f.panicWhite != "" && h.White == f.panicWhite {
		panic("pgn writer blew up")
	}
	return f.Rules.EncodeRecord(h, sanMoves)
}
