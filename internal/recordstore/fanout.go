package recordstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/domain"
)

// Fanout reads from the primary store and writes to the primary and every mirror.
// A mirror failure is logged and reported but does not undo the primary write.
type Fanout struct {
	primary Store
	mirrors []Store
	logger  *zap.Logger
}

func NewFanout(logger *zap.Logger, primary Store, mirrors ...Store) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{primary: primary, mirrors: mirrors, logger: logger}
}

func (f *Fanout) Save(ctx context.Context, rec *domain.GameRecord) error {
	if err := f.primary.Save(ctx, rec); err != nil {
		return fmt.Errorf("primary save: %w", err)
	}
	var errs []error
	for i, m := range f.mirrors {
		if err := m.Save(ctx, rec); err != nil {
			f.logger.Warn("duel_record_mirror_error", zap.Int("mirror", i), zap.String("game_id", rec.Key), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Get(ctx context.Context, key string) (*domain.GameRecord, error) {
	return f.primary.Get(ctx, key)
}

func (f *Fanout) Recent(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	return f.primary.Recent(ctx, playerID, limit)
}

func (f *Fanout) Close() error {
	errs := []error{f.primary.Close()}
	for _, m := range f.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
