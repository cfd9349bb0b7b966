package dueldto

// Error codes double as message catalog keys under duel.error.
const (
	CodeInvalidArgs     = "invalid_args"
	CodeSelfChallenge   = "self_challenge"
	CodeChallengerBusy  = "challenger_busy"
	CodeTargetBusy      = "target_busy"
	CodeInvalidOpponent = "invalid_opponent"
	CodeOfferNotFound   = "offer_not_found"
	CodeNotAddressee    = "not_addressee"
	CodeNotParticipant  = "not_participant"
	CodeNotYourTurn     = "not_your_turn"
	CodeIllegalMove     = "illegal_move"
	CodeNoPromotion     = "no_promotion"
	CodeNoSession       = "no_session"
	CodeGameOver        = "game_over"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "duel service error"
}
