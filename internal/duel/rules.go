package duel

import (
	"fmt"
	"strings"
	"time"
)

// Move is a from/to pair in coordinate notation with an optional promotion piece (q, r, b, n).
type Move struct {
	From      string
	To        string
	Promotion string
}

func (m Move) UCI() string { return m.From + m.To + m.Promotion }

func (m Move) sameSquares(o Move) bool { return m.From == o.From && m.To == o.To }

// ParseMove reads UCI text like "e2e4" or "e7e8q".
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	mv := Move{From: s[0:2], To: s[2:4]}
	if !ValidSquare(mv.From) || !ValidSquare(mv.To) {
		return Move{}, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	if len(s) == 5 {
		p, err := ParsePromotion(s[4:])
		if err != nil {
			return Move{}, err
		}
		mv.Promotion = p
	}
	return mv, nil
}

// ValidSquare reports whether s names a board square such as "e4".
func ValidSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// ParsePromotion normalizes a promotion piece.
func ParsePromotion(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q", "queen", "퀸":
		return "q", nil
	case "r", "rook", "룩":
		return "r", nil
	case "b", "bishop", "비숍":
		return "b", nil
	case "n", "knight", "나이트":
		return "n", nil
	default:
		return "", fmt.Errorf("%w: promotion %q", ErrIllegalMove, s)
	}
}

// Position is owned by the Rules implementation and treated as opaque.
type Position any

// Verdict is the rules engine's terminal status of a position.
type Verdict struct {
	Winner Color
	Draw   bool
	// Method names how the game ended ("checkmate", "stalemate", ...).
	Method string
}

func (v Verdict) Ongoing() bool { return v.Winner == NoColor && !v.Draw }

// RecordHeader carries the tags written to the portable game record.
type RecordHeader struct {
	Event       string
	Site        string
	Date        time.Time
	White       string
	Black       string
	Result      string
	Termination string
	TimeControl string
}

// Rules is the chess rules capability. Implementations must not mutate a
// Position passed in; Apply returns a new one.
type Rules interface {
	NewPosition() (Position, error)
	LegalMoves(pos Position) ([]Move, error)
	// Apply plays mv and returns the resulting position plus the move in SAN.
	Apply(pos Position, mv Move) (Position, string, error)
	Status(pos Position) (Verdict, error)
	SideToMove(pos Position) Color
	FEN(pos Position) string
	EncodeRecord(h RecordHeader, sanMoves []string) (string, error)
}

