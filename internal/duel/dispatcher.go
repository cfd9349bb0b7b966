package duel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/domain"
)

const tracerName = "github.com/park285/chess-duel-bot/internal/duel"

// Early abort stays possible until this many moves have been played.
const earlyAbortMoves = 2

// OutcomeKind tells the presenter what happened.
type OutcomeKind string

const (
	OutcomeUpdated           OutcomeKind = "updated"
	OutcomeAwaitingPromotion OutcomeKind = "awaiting_promotion"
	OutcomeDrawOffered       OutcomeKind = "draw_offered"
	OutcomeAlreadyOffered    OutcomeKind = "already_offered"
	OutcomeEnded             OutcomeKind = "ended"
	OutcomeTimeReport        OutcomeKind = "time_report"
	OutcomeBoard             OutcomeKind = "board"
)

// Outcome is the result of one dispatched action.
type Outcome struct {
	Kind  OutcomeKind
	State BoardState
	// SAN of the move just played, if any.
	SAN string
	// Record is set when the action ended the game.
	Record *domain.GameRecord
}

// Dispatcher validates actions against phase and identity and applies them
// to sessions held by the registry.
type Dispatcher struct {
	reg    *Registry
	rules  Rules
	logger *zap.Logger
	tracer trace.Tracer
}

func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{
		reg:    reg,
		rules:  reg.rules,
		logger: reg.logger,
		tracer: otel.Tracer(tracerName),
	}
}

type action func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error)

// run serializes fn on the session lock and publishes any record after unlocking.
func (d *Dispatcher) run(ctx context.Context, op, key, playerID string, fn action) (Outcome, error) {
	ctx, span := d.tracer.Start(ctx, "duel."+op, trace.WithAttributes(
		attribute.String("duel.key", key),
		attribute.String("duel.player", playerID),
	))
	defer span.End()

	s, ok := d.reg.lookup(key)
	if !ok {
		span.SetStatus(codes.Error, ErrGameOver.Error())
		return Outcome{}, ErrGameOver
	}
	s.mu.Lock()
	out, rec, err := fn(s, d.reg.now())
	s.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		if Classify(err) == KindAdapter {
			span.SetStatus(codes.Error, err.Error())
			d.logger.Warn("duel_adapter_error", zap.String("op", op), zap.String("game_id", key), zap.Error(err))
		}
		return Outcome{}, err
	}
	span.SetAttributes(attribute.String("duel.outcome", string(out.Kind)))
	if rec != nil {
		d.reg.publish(ctx, rec)
	}
	return out, nil
}

// participant checks the common preconditions and returns the actor's side.
func participant(s *Session, playerID string) (Color, error) {
	if s.phase != PhaseActive {
		return NoColor, ErrGameOver
	}
	side, ok := s.colorOf(playerID)
	if !ok {
		return NoColor, ErrNotParticipant
	}
	return side, nil
}

// SubmitMove plays mv for playerID. A pawn reaching the last rank without a
// promotion piece yields OutcomeAwaitingPromotion.
func (d *Dispatcher) SubmitMove(ctx context.Context, key, playerID string, mv Move) (Outcome, error) {
	return d.run(ctx, "SubmitMove", key, playerID, func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error) {
		side, err := participant(s, playerID)
		if err != nil {
			return Outcome{}, nil, err
		}
		if side != d.rules.SideToMove(s.pos) {
			return Outcome{}, nil, ErrNotYourTurn
		}
		clock := s.clock
		clock.Settle(now, side)
		if out, rec, done := d.flagFallLocked(s, clock, side, now); done {
			return out, rec, nil
		}

		legal, err := d.rules.LegalMoves(s.pos)
		if err != nil {
			return Outcome{}, nil, adapterErr("legal_moves", err)
		}
		match, found := findLegal(legal, mv)
		if !found {
			if mv.Promotion == "" && promotable(legal, mv) {
				s.clock = clock
				pending := mv
				s.pending = &pending
				s.lastAction = now
				return Outcome{Kind: OutcomeAwaitingPromotion, State: s.stateLocked(d.rules, now)}, nil, nil
			}
			return Outcome{}, nil, fmt.Errorf("%w: %s", ErrIllegalMove, mv.UCI())
		}
		return d.applyLocked(s, clock, playerID, match, now)
	})
}

// Promote completes a pending promotion. The time spent choosing counts
// against the mover.
func (d *Dispatcher) Promote(ctx context.Context, key, playerID, piece string) (Outcome, error) {
	return d.run(ctx, "Promote", key, playerID, func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error) {
		side, err := participant(s, playerID)
		if err != nil {
			return Outcome{}, nil, err
		}
		if side != d.rules.SideToMove(s.pos) {
			return Outcome{}, nil, ErrNotYourTurn
		}
		if s.pending == nil {
			return Outcome{}, nil, ErrNoPendingPromotion
		}
		promo, err := ParsePromotion(piece)
		if err != nil {
			return Outcome{}, nil, err
		}
		clock := s.clock
		clock.Settle(now, side)
		if out, rec, done := d.flagFallLocked(s, clock, side, now); done {
			return out, rec, nil
		}
		mv := *s.pending
		mv.Promotion = promo
		legal, err := d.rules.LegalMoves(s.pos)
		if err != nil {
			return Outcome{}, nil, adapterErr("legal_moves", err)
		}
		match, found := findLegal(legal, mv)
		if !found {
			return Outcome{}, nil, fmt.Errorf("%w: %s", ErrIllegalMove, mv.UCI())
		}
		return d.applyLocked(s, clock, playerID, match, now)
	})
}

// flagFallLocked ends the session on time if the settled clock shows a flag.
func (d *Dispatcher) flagFallLocked(s *Session, clock Clock, sideToMove Color, now time.Time) (Outcome, *domain.GameRecord, bool) {
	loser, expired := clock.Expired(sideToMove)
	if !expired {
		return Outcome{}, nil, false
	}
	s.clock = clock
	rec := d.reg.endLocked(s, now, domain.ReasonTimeout, loser.Opponent(), "")
	return Outcome{Kind: OutcomeEnded, State: s.stateLocked(d.rules, now), Record: rec}, rec, true
}

// applyLocked plays a legal move and commits every field together.
func (d *Dispatcher) applyLocked(s *Session, clock Clock, playerID string, mv Move, now time.Time) (Outcome, *domain.GameRecord, error) {
	next, san, err := d.rules.Apply(s.pos, mv)
	if err != nil {
		return Outcome{}, nil, adapterErr("apply", err)
	}
	verdict, err := d.rules.Status(next)
	if err != nil {
		return Outcome{}, nil, adapterErr("status", err)
	}

	s.pos = next
	s.clock = clock
	s.movesUCI = append(s.movesUCI, mv.UCI())
	s.movesSAN = append(s.movesSAN, san)
	played := mv
	s.lastMove = &played
	s.pending = nil
	s.movesMade++
	if s.movesMade >= earlyAbortMoves {
		s.earlyAbortOK = false
	}
	s.lastAction = now

	d.logger.Info("duel_move",
		zap.String("game_id", s.key),
		zap.String("user_id", playerID),
		zap.String("uci", mv.UCI()),
		zap.String("san", san),
		zap.Int("moves_made", s.movesMade),
	)

	var rec *domain.GameRecord
	switch {
	case verdict.Winner != NoColor:
		rec = d.reg.endLocked(s, now, domain.ReasonCheckmate, verdict.Winner, verdict.Method)
	case verdict.Draw:
		rec = d.reg.endLocked(s, now, domain.ReasonDraw, NoColor, verdict.Method)
	}
	out := Outcome{Kind: OutcomeUpdated, SAN: san, State: s.stateLocked(d.rules, now)}
	if rec != nil {
		out.Kind = OutcomeEnded
		out.Record = rec
	}
	return out, rec, nil
}

// LegalTargets lists the legal moves starting on from for the player on move.
func (d *Dispatcher) LegalTargets(ctx context.Context, key, playerID, from string) ([]Move, error) {
	var targets []Move
	_, err := d.run(ctx, "LegalTargets", key, playerID, func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error) {
		side, err := participant(s, playerID)
		if err != nil {
			return Outcome{}, nil, err
		}
		if side != d.rules.SideToMove(s.pos) {
			return Outcome{}, nil, ErrNotYourTurn
		}
		if !ValidSquare(from) {
			return Outcome{}, nil, fmt.Errorf("%w: square %q", ErrIllegalMove, from)
		}
		legal, err := d.rules.LegalMoves(s.pos)
		if err != nil {
			return Outcome{}, nil, adapterErr("legal_moves", err)
		}
		for _, mv := range legal {
			if mv.From == from {
				targets = append(targets, mv)
			}
		}
		return Outcome{Kind: OutcomeBoard}, nil, nil
	})
	return targets, err
}

// OfferOrAcceptDraw records a draw offer, or ends the game when the other
// participant already offered one.
func (d *Dispatcher) OfferOrAcceptDraw(ctx context.Context, key, playerID string) (Outcome, error) {
	return d.run(ctx, "OfferOrAcceptDraw", key, playerID, func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error) {
		if _, err := participant(s, playerID); err != nil {
			return Outcome{}, nil, err
		}
		switch s.drawOfferBy {
		case "":
			s.drawOfferBy = playerID
			return Outcome{Kind: OutcomeDrawOffered, State: s.stateLocked(d.rules, now)}, nil, nil
		case playerID:
			return Outcome{Kind: OutcomeAlreadyOffered, State: s.stateLocked(d.rules, now)}, nil, nil
		}
		rec := d.reg.endLocked(s, now, domain.ReasonDraw, NoColor, "agreement")
		return Outcome{Kind: OutcomeEnded, State: s.stateLocked(d.rules, now), Record: rec}, rec, nil
	})
}

// Resign ends the game in favour of the opponent.
func (d *Dispatcher) Resign(ctx context.Context, key, playerID string) (Outcome, error) {
	return d.run(ctx, "Resign", key, playerID, func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error) {
		side, err := participant(s, playerID)
		if err != nil {
			return Outcome{}, nil, err
		}
		rec := d.reg.endLocked(s, now, domain.ReasonResignation, side.Opponent(), "")
		return Outcome{Kind: OutcomeEnded, State: s.stateLocked(d.rules, now), Record: rec}, rec, nil
	})
}

// QueryTime reports both clocks including the running turn. It never mutates the session.
func (d *Dispatcher) QueryTime(ctx context.Context, key, playerID string) (Outcome, error) {
	return d.run(ctx, "QueryTime", key, playerID, func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error) {
		if _, err := participant(s, playerID); err != nil {
			return Outcome{}, nil, err
		}
		return Outcome{Kind: OutcomeTimeReport, State: s.stateLocked(d.rules, now)}, nil, nil
	})
}

// Board returns the current state for anyone in the room.
func (d *Dispatcher) Board(ctx context.Context, key string) (Outcome, error) {
	return d.run(ctx, "Board", key, "", func(s *Session, now time.Time) (Outcome, *domain.GameRecord, error) {
		if s.phase != PhaseActive {
			return Outcome{}, nil, ErrGameOver
		}
		return Outcome{Kind: OutcomeBoard, State: s.stateLocked(d.rules, now)}, nil, nil
	})
}

func findLegal(legal []Move, mv Move) (Move, bool) {
	for _, l := range legal {
		if l.sameSquares(mv) && l.Promotion == mv.Promotion {
			return l, true
		}
	}
	return Move{}, false
}

func promotable(legal []Move, mv Move) bool {
	for _, l := range legal {
		if l.sameSquares(mv) && l.Promotion != "" {
			return true
		}
	}
	return false
}
