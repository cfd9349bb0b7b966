package duelpresenter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
	"github.com/park285/chess-duel-bot/internal/render"
	"github.com/park285/chess-duel-bot/pkg/dueldto"
)

type sent struct {
	room, body string
	image      bool
}

type outbox struct {
	mu   sync.Mutex
	msgs []sent
}

func (o *outbox) text(room, msg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, sent{room: room, body: msg})
	return nil
}

func (o *outbox) image(room, b64 string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, sent{room: room, body: b64, image: true})
	return nil
}

type stubRenderer struct{ err error }

func (s stubRenderer) RenderPNG(context.Context, duel.BoardState, render.Options) ([]byte, error) {
	return []byte("png"), s.err
}

var (
	white = duel.Player{ID: "u1", Name: "앨리스"}
	black = duel.Player{ID: "u2", Name: "밥"}
)

func finished() (duel.BoardState, *domain.GameRecord) {
	st := duel.BoardState{
		Key: "g1", Room: "room", White: white, Black: black,
		FEN: "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		SideToMove: duel.White, Phase: duel.PhaseCompleted,
		MovesSAN: []string{"f3", "e5", "g4", "Qh4#"},
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &domain.GameRecord{
		Key: "g1", Room: "room",
		WhiteID: white.ID, WhiteName: white.Name, BlackID: black.ID, BlackName: black.Name,
		Reason: domain.ReasonCheckmate, Result: domain.ResultBlackWins,
		WinnerID: black.ID, LoserID: white.ID,
		MovesSAN: st.MovesSAN, PGN: "1. f3 e5 2. g4 Qh4# 0-1",
		StartedAt: start, EndedAt: start.Add(90 * time.Second),
	}
	return st, rec
}

func TestFormatterEnded(t *testing.T) {
	f := NewFormatter(StaticPrefix("!"), nil)
	_, rec := finished()
	out := f.Ended(ToGameSummary(rec))
	assert.Contains(t, out, "체크메이트! 밥님이 앨리스님을 이겼습니다.")
	assert.Contains(t, out, "0-1 · 4수 · 1m30s")
	assert.Contains(t, out, "`!체스 기보 g1`")

	rec.Reason, rec.Result, rec.WinnerID, rec.LoserID = domain.ReasonInactivity, domain.ResultAborted, "", ""
	assert.Contains(t, f.Ended(ToGameSummary(rec)), "응답이 없어")

	rec.Reason, rec.Result, rec.Detail = domain.ReasonDraw, domain.ResultDraw, "stalemate"
	assert.Contains(t, f.Ended(ToGameSummary(rec)), "(스테일메이트)")
}

func TestFormatterMoveAndTime(t *testing.T) {
	f := NewFormatter(StaticPrefix("!"), nil)
	v := ToSessionView(duel.BoardState{
		White: white, Black: black, SideToMove: duel.Black,
		WhiteClock: 598 * time.Second, BlackClock: 10 * time.Minute,
	})
	out := f.Move(v, "e4")
	assert.Equal(t, "앨리스: e4\n다음 차례: 밥 (흑)\n⏱ 백 09:58 | 흑 10:00", out)
	assert.Contains(t, f.Time(v), "현재 차례: 밥")
}

func TestFormatterErrors(t *testing.T) {
	f := NewFormatter(StaticPrefix("!"), nil)
	assert.Equal(t, "지금은 당신의 차례가 아닙니다.", f.Error(ToDomainError(duel.ErrNotYourTurn)))
	assert.Equal(t, "이미 끝난 대국입니다.", f.Error(ToDomainError(fmt.Errorf("wrap: %w", duel.ErrGameOver))))

	de := ToDomainError(errors.New("db down"))
	assert.True(t, de.Retryable)
	assert.Equal(t, dueldto.CodeUnavailable, de.Code)
	assert.Contains(t, f.Error(dueldto.DomainError{Code: "bogus"}), "처리하지 못했습니다")
}

func TestFormatterHistory(t *testing.T) {
	f := NewFormatter(StaticPrefix("!"), nil)
	_, rec := finished()
	viewer := dueldto.Player{ID: white.ID, Name: white.Name}
	out := f.History(viewer, ToGameSummaries([]*domain.GameRecord{rec, nil}))
	assert.Contains(t, out, "1. 2026-01-01 09:01 앨리스 vs 밥 ❌ 패 (체크메이트) [g1]")
	assert.Equal(t, "아직 기록된 대국이 없습니다.", f.History(viewer, nil))
}

func TestAnnounceEndSendsTextImageAndPGN(t *testing.T) {
	box := &outbox{}
	p := NewPresenter(box.text, box.image, stubRenderer{}, nil)
	f := NewFormatter(StaticPrefix("!"), nil)
	st, rec := finished()

	require.NoError(t, AnnounceEnd(context.Background(), p, f, st, rec))
	require.Len(t, box.msgs, 3)
	assert.False(t, box.msgs[0].image)
	assert.True(t, box.msgs[1].image)
	assert.Equal(t, "cG5n", box.msgs[1].body)
	assert.True(t, strings.Contains(box.msgs[2].body, "Qh4#"))
}

func TestBoardSkipsImageOnRenderError(t *testing.T) {
	box := &outbox{}
	p := NewPresenter(box.text, box.image, stubRenderer{err: errors.New("bad")}, nil)
	st, _ := finished()
	require.NoError(t, p.Board(context.Background(), "room", "hi", st, duel.White))
	require.Len(t, box.msgs, 1)
	assert.Equal(t, "hi", box.msgs[0].body)
}

func TestNotifierOfferExpired(t *testing.T) {
	box := &outbox{}
	n := NewNotifier(NewPresenter(box.text, box.image, nil, nil), NewFormatter(nil, nil), nil)
	n.OfferExpired(context.Background(), duel.Offer{ID: "o1", Room: "room", Challenger: white, Opponent: black, Status: duel.OfferExpired})
	require.Len(t, box.msgs, 1)
	assert.Equal(t, "room", box.msgs[0].room)
	assert.Contains(t, box.msgs[0].body, "앨리스님의 대결 신청이")
}
