package duel

import (
	"errors"
	"fmt"
)

// Rejections: reported to the actor only, no state change.
var (
	ErrInvalidArgs        = errors.New("invalid arguments")
	ErrSelfChallenge      = errors.New("cannot challenge yourself")
	ErrChallengerBusy     = errors.New("challenger already has an offer or game")
	ErrTargetBusy         = errors.New("opponent already has an offer or game")
	ErrInvalidOpponent    = errors.New("opponent cannot play")
	ErrOfferNotFound      = errors.New("no pending offer")
	ErrNotAddressee       = errors.New("offer is addressed to someone else")
	ErrNotParticipant     = errors.New("not a participant of this game")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrIllegalMove        = errors.New("illegal move")
	ErrNoPendingPromotion = errors.New("no promotion pending")
	ErrNoSession          = errors.New("no active game")
)

// ErrGameOver is returned when an action races with the end of the session.
var ErrGameOver = errors.New("game already over")

// AdapterError wraps a rules engine failure. The action is rejected and
// session state is left untouched, so the caller may retry.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string { return fmt.Sprintf("rules %s: %v", e.Op, e.Err) }
func (e *AdapterError) Unwrap() error { return e.Err }

func adapterErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Op: op, Err: err}
}

// ErrorKind groups errors for presentation.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindRejected    ErrorKind = "rejected"
	KindConflict    ErrorKind = "conflict"
	KindAdapter     ErrorKind = "adapter"
	KindUnavailable ErrorKind = "unavailable"
)

var rejections = []error{
	ErrInvalidArgs, ErrSelfChallenge, ErrChallengerBusy, ErrTargetBusy,
	ErrInvalidOpponent, ErrOfferNotFound, ErrNotAddressee, ErrNotParticipant,
	ErrNotYourTurn, ErrIllegalMove, ErrNoPendingPromotion, ErrNoSession,
}

// Classify maps err onto the error taxonomy.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrGameOver) {
		return KindConflict
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return KindAdapter
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return KindRejected
		}
	}
	return KindUnavailable
}
