package dueldto

import "time"

type Player struct {
	ID   string
	Name string
}

// SessionView is a presentation snapshot of one duel.
type SessionView struct {
	Key               string
	Room              string
	White             Player
	Black             Player
	FEN               string
	SideToMove        string
	MovesSAN          []string
	MovesUCI          []string
	LastMoveUCI       string
	WhiteClock        time.Duration
	BlackClock        time.Duration
	MovesMade         int
	DrawOfferBy       string
	AwaitingPromotion bool
	Finished          bool
	BoardImage        []byte
}

// Mover returns the player whose turn it is.
func (v *SessionView) Mover() Player {
	if v.SideToMove == "black" {
		return v.Black
	}
	return v.White
}

type OfferView struct {
	ID         string
	Room       string
	Challenger Player
	Opponent   Player
	Color      string
	ExpiresAt  time.Time
	Status     string
}
