package dueldto

import "time"

type GameSummary struct {
	Key       string
	Room      string
	White     Player
	Black     Player
	Result    string
	Reason    string
	Detail    string
	WinnerID  string
	LoserID   string
	MovesSAN  []string
	PGN       string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// Winner returns the winning side's player, or false on a draw or abort.
func (g *GameSummary) Winner() (Player, bool) {
	switch g.WinnerID {
	case "":
		return Player{}, false
	case g.White.ID:
		return g.White, true
	default:
		return g.Black, true
	}
}

func (g *GameSummary) Loser() (Player, bool) {
	switch g.LoserID {
	case "":
		return Player{}, false
	case g.White.ID:
		return g.White, true
	default:
		return g.Black, true
	}
}
