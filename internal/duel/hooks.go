package duel

import (
	"context"

	"github.com/park285/chess-duel-bot/internal/domain"
)

// Recorder persists finished games.
type Recorder interface {
	Save(ctx context.Context, rec *domain.GameRecord) error
}

// Ended describes a session that finished without a user action driving it
// (inactivity, flag fall).
type Ended struct {
	Record *domain.GameRecord
	State  BoardState
}

// Notifier receives lifecycle events that no command handler will report.
type Notifier interface {
	SessionEnded(ctx context.Context, ev Ended)
	OfferExpired(ctx context.Context, offer Offer)
}

type nopRecorder struct{}

func (nopRecorder) Save(context.Context, *domain.GameRecord) error { return nil }

type nopNotifier struct{}

func (nopNotifier) SessionEnded(context.Context, Ended) {}
func (nopNotifier) OfferExpired(context.Context, Offer) {}
