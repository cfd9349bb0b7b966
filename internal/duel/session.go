package duel

import (
	"sync"
	"time"
)

// Session is one game's full state. All fields are guarded by mu; only the
// Dispatcher, the Watchdog and Registry.End touch them.
type Session struct {
	mu sync.Mutex

	key       string
	room      string
	white     Player
	black     Player
	pos       Position
	movesUCI  []string
	movesSAN  []string
	lastMove  *Move
	clock     Clock
	phase     Phase
	startedAt time.Time

	// drawOfferBy is the id of the participant with a pending draw offer.
	drawOfferBy string
	// pending holds a pawn move to the last rank waiting for its promotion piece.
	pending *Move

	movesMade    int
	lastAction   time.Time
	earlyAbortOK bool
}

func (s *Session) Key() string { return s.key }

func (s *Session) colorOf(playerID string) (Color, bool) {
	switch playerID {
	case "":
		return NoColor, false
	case s.white.ID:
		return White, true
	case s.black.ID:
		return Black, true
	default:
		return NoColor, false
	}
}

func (s *Session) playerOf(c Color) Player {
	if c == Black {
		return s.black
	}
	return s.white
}

// stateLocked builds the renderable view. Clocks include the running turn.
func (s *Session) stateLocked(rules Rules, now time.Time) BoardState {
	turn := rules.SideToMove(s.pos)
	clock := s.clock
	if s.phase == PhaseActive {
		clock = clock.Projected(now, turn)
	}
	st := BoardState{
		Key:               s.key,
		Room:              s.room,
		White:             s.white,
		Black:             s.black,
		FEN:               rules.FEN(s.pos),
		SideToMove:        turn,
		MovesUCI:          append([]string(nil), s.movesUCI...),
		MovesSAN:          append([]string(nil), s.movesSAN...),
		WhiteClock:        clock.White,
		BlackClock:        clock.Black,
		MovesMade:         s.movesMade,
		DrawOfferBy:       s.drawOfferBy,
		AwaitingPromotion: s.pending != nil,
		Phase:             s.phase,
	}
	if s.lastMove != nil {
		mv := *s.lastMove
		st.LastMove = &mv
	}
	return st
}
