package duelpresenter

import (
	"errors"

	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
	"github.com/park285/chess-duel-bot/pkg/dueldto"
)

func toPlayer(p duel.Player) dueldto.Player {
	return dueldto.Player{ID: p.ID, Name: p.DisplayName()}
}

func ToSessionView(st duel.BoardState) *dueldto.SessionView {
	v := &dueldto.SessionView{
		Key:               st.Key,
		Room:              st.Room,
		White:             toPlayer(st.White),
		Black:             toPlayer(st.Black),
		FEN:               st.FEN,
		SideToMove:        string(st.SideToMove),
		MovesSAN:          append([]string(nil), st.MovesSAN...),
		MovesUCI:          append([]string(nil), st.MovesUCI...),
		WhiteClock:        st.WhiteClock,
		BlackClock:        st.BlackClock,
		MovesMade:         st.MovesMade,
		DrawOfferBy:       st.DrawOfferBy,
		AwaitingPromotion: st.AwaitingPromotion,
		Finished:          st.Phase == duel.PhaseCompleted,
	}
	if st.LastMove != nil {
		v.LastMoveUCI = st.LastMove.UCI()
	}
	return v
}

func ToOfferView(o duel.Offer) *dueldto.OfferView {
	return &dueldto.OfferView{
		ID:         o.ID,
		Room:       o.Room,
		Challenger: toPlayer(o.Challenger),
		Opponent:   toPlayer(o.Opponent),
		Color:      string(o.Color),
		ExpiresAt:  o.ExpiresAt,
		Status:     string(o.Status),
	}
}

func ToGameSummary(rec *domain.GameRecord) *dueldto.GameSummary {
	if rec == nil {
		return nil
	}
	return &dueldto.GameSummary{
		Key:       rec.Key,
		Room:      rec.Room,
		White:     dueldto.Player{ID: rec.WhiteID, Name: nameOr(rec.WhiteName, rec.WhiteID)},
		Black:     dueldto.Player{ID: rec.BlackID, Name: nameOr(rec.BlackName, rec.BlackID)},
		Result:    rec.Result,
		Reason:    string(rec.Reason),
		Detail:    rec.Detail,
		WinnerID:  rec.WinnerID,
		LoserID:   rec.LoserID,
		MovesSAN:  append([]string(nil), rec.MovesSAN...),
		PGN:       rec.PGN,
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
		Duration:  rec.Duration(),
	}
}

func ToGameSummaries(list []*domain.GameRecord) []*dueldto.GameSummary {
	out := make([]*dueldto.GameSummary, 0, len(list))
	for _, rec := range list {
		if rec != nil {
			out = append(out, ToGameSummary(rec))
		}
	}
	return out
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

var errorCodes = []struct {
	err  error
	code string
}{
	{duel.ErrInvalidArgs, dueldto.CodeInvalidArgs},
	{duel.ErrSelfChallenge, dueldto.CodeSelfChallenge},
	{duel.ErrChallengerBusy, dueldto.CodeChallengerBusy},
	{duel.ErrTargetBusy, dueldto.CodeTargetBusy},
	{duel.ErrInvalidOpponent, dueldto.CodeInvalidOpponent},
	{duel.ErrOfferNotFound, dueldto.CodeOfferNotFound},
	{duel.ErrNotAddressee, dueldto.CodeNotAddressee},
	{duel.ErrNotParticipant, dueldto.CodeNotParticipant},
	{duel.ErrNotYourTurn, dueldto.CodeNotYourTurn},
	{duel.ErrIllegalMove, dueldto.CodeIllegalMove},
	{duel.ErrNoPendingPromotion, dueldto.CodeNoPromotion},
	{duel.ErrNoSession, dueldto.CodeNoSession},
	{duel.ErrGameOver, dueldto.CodeGameOver},
}

// ToDomainError maps engine errors to presentation codes. Adapter and
// unknown failures are retryable.
func ToDomainError(err error) dueldto.DomainError {
	if err == nil {
		return dueldto.DomainError{}
	}
	var de dueldto.DomainError
	if errors.As(err, &de) {
		return de
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return dueldto.DomainError{Code: ec.code, Message: err.Error()}
		}
	}
	switch duel.Classify(err) {
	case duel.KindAdapter:
		return dueldto.DomainError{Code: dueldto.CodeInternal, Message: err.Error(), Retryable: true}
	default:
		return dueldto.DomainError{Code: dueldto.CodeUnavailable, Message: err.Error(), Retryable: true}
	}
}
