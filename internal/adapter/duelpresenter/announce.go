package duelpresenter

import (
	"context"
	"strings"

	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
)

// AnnounceEnd sends the result text with the final board, then the PGN.
func AnnounceEnd(ctx context.Context, p *Presenter, f *Formatter, st duel.BoardState, rec *domain.GameRecord) error {
	g := ToGameSummary(rec)
	if err := p.Board(ctx, rec.Room, f.Ended(g), st, duel.White); err != nil {
		return err
	}
	if strings.TrimSpace(rec.PGN) == "" {
		return nil
	}
	return p.Text(rec.Room, f.PGN(g))
}
