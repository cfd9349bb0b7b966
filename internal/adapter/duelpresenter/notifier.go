package duelpresenter

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/duel"
)

// Notifier announces sessions and offers that ended without a user command in flight.
type Notifier struct {
	presenter *Presenter
	formatter *Formatter
	logger    *zap.Logger
}

func NewNotifier(p *Presenter, f *Formatter, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{presenter: p, formatter: f, logger: logger}
}

func (n *Notifier) SessionEnded(ctx context.Context, ev duel.Ended) {
	if ev.Record == nil {
		return
	}
	if err := AnnounceEnd(ctx, n.presenter, n.formatter, ev.State, ev.Record); err != nil {
		n.logger.Warn("duel_notify_error", zap.String("game_id", ev.Record.Key), zap.String("room", ev.State.Room), zap.Error(err))
	}
}

func (n *Notifier) OfferExpired(_ context.Context, o duel.Offer) {
	if err := n.presenter.Text(o.Room, n.formatter.OfferClosed(ToOfferView(o))); err != nil {
		n.logger.Warn("duel_notify_error", zap.String("offer_id", o.ID), zap.String("room", o.Room), zap.Error(err))
	}
}
