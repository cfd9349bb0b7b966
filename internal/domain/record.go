package domain

import "time"

// Result tokens follow PGN.
const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultDraw      = "1/2-1/2"
	ResultAborted   = "*"
)

// EndReason is why a duel stopped.
type EndReason string

const (
	ReasonCheckmate   EndReason = "checkmate"
	ReasonDraw        EndReason = "draw"
	ReasonResignation EndReason = "resignation"
	ReasonTimeout     EndReason = "timeout"
	ReasonInactivity  EndReason = "inactivity"
)

// GameRecord is the immutable export written once per finished duel.
type GameRecord struct {
	Key       string    `json:"key"`
	Room      string    `json:"room"`
	WhiteID   string    `json:"white_id"`
	WhiteName string    `json:"white_name"`
	BlackID   string    `json:"black_id"`
	BlackName string    `json:"black_name"`
	Reason    EndReason `json:"reason"`
	Detail    string    `json:"detail,omitempty"`
	Result    string    `json:"result"`
	WinnerID  string    `json:"winner_id,omitempty"`
	LoserID   string    `json:"loser_id,omitempty"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	PGN       string    `json:"pgn"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Duration is the wall time between acceptance and the end.
func (r *GameRecord) Duration() time.Duration {
	if r == nil || r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Involves reports whether playerID took part in the game.
func (r *GameRecord) Involves(playerID string) bool {
	return r != nil && playerID != "" && (r.WhiteID == playerID || r.BlackID == playerID)
}
