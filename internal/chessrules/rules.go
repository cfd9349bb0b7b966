package chessrules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-duel-bot/internal/duel"
)

var errForeignPosition = errors.New("position was not created by chessrules")

// Rules implements duel.Rules on top of corentings/chess.
type Rules struct{}

func New() *Rules { return &Rules{} }

var _ duel.Rules = (*Rules)(nil)

// position wraps a game so move history is available for repetition claims.
type position struct {
	game *nchess.Game
}

func unwrap(pos duel.Position) (*nchess.Game, error) {
	p, ok := pos.(*position)
	if !ok || p == nil || p.game == nil {
		return nil, errForeignPosition
	}
	return p.game, nil
}

func (Rules) NewPosition() (duel.Position, error) {
	return &position{game: nchess.NewGame()}, nil
}

// FromFEN starts a position from a FEN string.
func (Rules) FromFEN(fen string) (duel.Position, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &position{game: nchess.NewGame(opt)}, nil
}

func (Rules) LegalMoves(pos duel.Position) ([]duel.Move, error) {
	game, err := unwrap(pos)
	if err != nil {
		return nil, err
	}
	valid := game.ValidMoves()
	out := make([]duel.Move, 0, len(valid))
	for _, mv := range valid {
		out = append(out, duel.Move{
			From:      mv.S1().String(),
			To:        mv.S2().String(),
			Promotion: promoLetter(mv.Promo()),
		})
	}
	return out, nil
}

func (Rules) Apply(pos duel.Position, mv duel.Move) (duel.Position, string, error) {
	game, err := unwrap(pos)
	if err != nil {
		return nil, "", err
	}
	next := game.Clone()
	before := next.Position()
	move, err := nchess.UCINotation{}.Decode(before, mv.UCI())
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", mv.UCI(), err)
	}
	san := nchess.AlgebraicNotation{}.Encode(before, move)
	if err := next.Move(move, nil); err != nil {
		return nil, "", fmt.Errorf("move %s: %w", mv.UCI(), err)
	}
	return &position{game: next}, san, nil
}

// Status reports checkmate and draws. Threefold repetition and the
// fifty-move rule count as soon as they can be claimed.
func (Rules) Status(pos duel.Position) (duel.Verdict, error) {
	game, err := unwrap(pos)
	if err != nil {
		return duel.Verdict{}, err
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		return duel.Verdict{Winner: duel.White, Method: methodName(game.Method())}, nil
	case nchess.BlackWon:
		return duel.Verdict{Winner: duel.Black, Method: methodName(game.Method())}, nil
	case nchess.Draw:
		return duel.Verdict{Draw: true, Method: methodName(game.Method())}, nil
	}
	for _, m := range game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition || m == nchess.FiftyMoveRule {
			return duel.Verdict{Draw: true, Method: methodName(m)}, nil
		}
	}
	return duel.Verdict{}, nil
}

func (Rules) SideToMove(pos duel.Position) duel.Color {
	game, err := unwrap(pos)
	if err != nil {
		return duel.NoColor
	}
	if game.Position().Turn() == nchess.Black {
		return duel.Black
	}
	return duel.White
}

func (Rules) FEN(pos duel.Position) string {
	game, err := unwrap(pos)
	if err != nil {
		return ""
	}
	return game.FEN()
}

func promoLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.Queen:
		return "q"
	case nchess.Rook:
		return "r"
	case nchess.Bishop:
		return "b"
	case nchess.Knight:
		return "n"
	default:
		return ""
	}
}

func methodName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.ThreefoldRepetition:
		return "threefold repetition"
	case nchess.FivefoldRepetition:
		return "fivefold repetition"
	case nchess.FiftyMoveRule:
		return "fifty-move rule"
	case nchess.SeventyFiveMoveRule:
		return "seventy-five-move rule"
	case nchess.InsufficientMaterial:
		return "insufficient material"
	default:
		return ""
	}
}
