package duel

import (
	"strings"
	"time"
)

// Color identifies a side.
type Color string

const (
	NoColor Color = ""
	White   Color = "white"
	Black   Color = "black"
)

func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// Player is a chat participant.
type Player struct {
	ID   string
	Name string
}

// DisplayName falls back to the id when the transport did not provide a name.
func (p Player) DisplayName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return p.ID
}

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseActive    Phase = "ACTIVE"
	PhaseCompleted Phase = "COMPLETED"
)

// ColorChoice is the challenger's side preference.
type ColorChoice string

const (
	ColorWhite  ColorChoice = "white"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

// ParseColorChoice maps user input to a choice. Unknown input means the challenger plays white.
func ParseColorChoice(s string) ColorChoice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black", "b", "흑":
		return ColorBlack
	case "random", "r", "랜덤":
		return ColorRandom
	default:
		return ColorWhite
	}
}

// OfferStatus tracks a challenge before it turns into a session.
type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferDeclined  OfferStatus = "DECLINED"
	OfferCancelled OfferStatus = "CANCELLED"
	OfferExpired   OfferStatus = "EXPIRED"
)

// Offer is a pending challenge.
type Offer struct {
	ID         string
	Room       string
	Challenger Player
	Opponent   Player
	Color      ColorChoice
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Status     OfferStatus
}

// BoardState is the renderable view of a session at one instant.
type BoardState struct {
	Key               string
	Room              string
	White             Player
	Black             Player
	FEN               string
	SideToMove        Color
	MovesUCI          []string
	MovesSAN          []string
	LastMove          *Move
	WhiteClock        time.Duration
	BlackClock        time.Duration
	MovesMade         int
	DrawOfferBy       string
	AwaitingPromotion bool
	Phase             Phase
}

// PlayerOf returns the participant playing c.
func (b BoardState) PlayerOf(c Color) Player {
	if c == Black {
		return b.Black
	}
	return b.White
}
