// Package command turns chat lines into duel actions and replies.
package command

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/adapter/duelpresenter"
	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
	"github.com/park285/chess-duel-bot/internal/irisfast"
	"github.com/park285/chess-duel-bot/internal/recordstore"
	"github.com/park285/chess-duel-bot/pkg/dueldto"
)

// History serves finished games for the history and PGN commands.
type History interface {
	Get(ctx context.Context, key string) (*domain.GameRecord, error)
	Recent(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error)
}

type Router struct {
	prefix       string
	allowedRooms map[string]struct{}
	reg          *duel.Registry
	disp         *duel.Dispatcher
	history      History
	presenter    *duelpresenter.Presenter
	formatter    *duelpresenter.Formatter
	logger       *zap.Logger
	backlog      int
	lanes        *lanes
}

type Option func(*Router)

func WithAllowedRooms(rooms []string) Option {
	return func(r *Router) {
		for _, room := range rooms {
			if room = strings.TrimSpace(room); room != "" {
				r.allowedRooms[room] = struct{}{}
			}
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLaneBacklog caps how many lines may wait per room.
func WithLaneBacklog(n int) Option {
	return func(r *Router) { r.backlog = n }
}

func NewRouter(prefix string, reg *duel.Registry, disp *duel.Dispatcher, history History, p *duelpresenter.Presenter, f *duelpresenter.Formatter, opts ...Option) *Router {
	r := &Router{
		prefix:       strings.TrimSpace(prefix),
		allowedRooms: make(map[string]struct{}),
		reg:          reg,
		disp:         disp,
		history:      history,
		presenter:    p,
		formatter:    f,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lanes = newLanes(r.backlog, r.logger)
	return r
}

// Enqueue hands msg to its room's lane and returns at once. Lines from one
// room are handled in arrival order; rooms proceed independently.
func (r *Router) Enqueue(ctx context.Context, msg *irisfast.Message) bool {
	if msg == nil {
		return false
	}
	return r.lanes.submit(msg.Room, func() { r.HandleMessage(ctx, msg) })
}

// Close stops accepting lines and waits for queued ones until ctx is done.
func (r *Router) Close(ctx context.Context) error {
	return r.lanes.close(ctx)
}

// roots are the first words that address the duel bot after the prefix.
var roots = map[string]bool{"체스": true, "chess": true, "duel": true, "대결": true}

// HandleMessage is the websocket callback entry point.
func (r *Router) HandleMessage(ctx context.Context, msg *irisfast.Message) {
	if msg == nil || strings.TrimSpace(msg.Msg) == "" {
		return
	}
	if len(r.allowedRooms) > 0 {
		if _, ok := r.allowedRooms[msg.Room]; !ok {
			return
		}
	}
	meta := dueldto.RequestMeta{Room: msg.Room, SenderID: msg.UserID(), SenderName: msg.SenderName()}
	if meta.SenderID == "" {
		return
	}
	if err := r.Handle(ctx, meta, msg.Msg); err != nil {
		r.logger.Warn("duel_reply_error", zap.String("room", msg.Room), zap.Error(err))
	}
}

// Handle runs one chat line. Lines that do not address the bot are ignored.
// The returned error is a delivery failure; command failures are replied to the room.
func (r *Router) Handle(ctx context.Context, meta dueldto.RequestMeta, text string) error {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, r.prefix) {
		return nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, r.prefix))
	if len(fields) == 0 || !roots[strings.ToLower(fields[0])] {
		return nil
	}
	args := fields[1:]
	me := duel.Player{ID: meta.SenderID, Name: meta.SenderName}

	err := r.dispatch(ctx, meta.Room, me, args)
	if err == nil {
		return nil
	}
	var send sendError
	if errors.As(err, &send) {
		return send.err
	}
	de := duelpresenter.ToDomainError(err)
	if de.Retryable {
		r.logger.Warn("duel_command_error", zap.String("room", meta.Room), zap.String("player", me.ID), zap.Strings("args", args), zap.Error(err))
	}
	return r.presenter.Text(meta.Room, r.formatter.Error(de))
}

// sendError marks a failure while delivering the reply, not while running the command.
type sendError struct{ err error }

func (e sendError) Error() string { return e.err.Error() }

func sent(err error) error {
	if err == nil {
		return nil
	}
	return sendError{err: err}
}

func (r *Router) dispatch(ctx context.Context, room string, me duel.Player, args []string) error {
	if len(args) == 0 {
		return sent(r.presenter.Text(room, r.formatter.Help()))
	}
	sub, rest := strings.ToLower(args[0]), args[1:]
	switch {
	case strings.HasPrefix(args[0], "@"):
		return r.challenge(ctx, room, me, args)
	case sub == "도움" || sub == "help":
		return sent(r.presenter.Text(room, r.formatter.Help()))
	case sub == "대결" || sub == "challenge" || sub == "vs":
		return r.challenge(ctx, room, me, rest)
	case sub == "수락" || sub == "accept":
		return r.accept(ctx, room, me)
	case sub == "거절" || sub == "decline":
		return r.closeOffer(ctx, room, me, r.reg.Decline)
	case sub == "취소" || sub == "cancel":
		return r.closeOffer(ctx, room, me, r.reg.Cancel)
	case sub == "승격" || sub == "promote":
		if len(rest) != 1 {
			return duel.ErrInvalidArgs
		}
		return r.withSession(room, me, func(key string) error {
			out, err := r.disp.Promote(ctx, key, me.ID, rest[0])
			return r.present(ctx, room, out, err)
		})
	case sub == "이동" || sub == "moves":
		if len(rest) != 1 {
			return duel.ErrInvalidArgs
		}
		return r.legalTargets(ctx, room, me, strings.ToLower(rest[0]))
	case sub == "무승부" || sub == "draw":
		return r.withSession(room, me, func(key string) error {
			out, err := r.disp.OfferOrAcceptDraw(ctx, key, me.ID)
			return r.present(ctx, room, out, err)
		})
	case sub == "기권" || sub == "resign":
		return r.withSession(room, me, func(key string) error {
			out, err := r.disp.Resign(ctx, key, me.ID)
			return r.present(ctx, room, out, err)
		})
	case sub == "시간" || sub == "time":
		return r.withSession(room, me, func(key string) error {
			out, err := r.disp.QueryTime(ctx, key, me.ID)
			return r.present(ctx, room, out, err)
		})
	case sub == "보드" || sub == "현황" || sub == "board":
		return r.withSession(room, me, func(key string) error {
			out, err := r.disp.Board(ctx, key)
			return r.present(ctx, room, out, err)
		})
	case sub == "기록" || sub == "history":
		return r.recent(ctx, room, me, rest)
	case sub == "기보" || sub == "pgn":
		if len(rest) != 1 {
			return duel.ErrInvalidArgs
		}
		return r.pgn(ctx, room, rest[0])
	}

	mv, err := duel.ParseMove(args[0])
	if err != nil || len(rest) > 0 {
		return duel.ErrInvalidArgs
	}
	return r.withSession(room, me, func(key string) error {
		out, err := r.disp.SubmitMove(ctx, key, me.ID, mv)
		return r.present(ctx, room, out, err)
	})
}

// withSession resolves the caller's game in this room. Games are driven only
// from the room they started in, which keeps each game on one ingress lane.
func (r *Router) withSession(room string, me duel.Player, fn func(key string) error) error {
	key, ok := r.reg.SessionIn(me.ID, room)
	if !ok {
		return duel.ErrNoSession
	}
	return fn(key)
}

func (r *Router) challenge(ctx context.Context, room string, me duel.Player, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return duel.ErrInvalidArgs
	}
	target := sanitizeUserArg(args[0])
	color := duel.ColorWhite
	if len(args) == 2 {
		color = duel.ParseColorChoice(args[1])
	}
	offer, err := r.reg.TryStart(ctx, me, duel.Player{ID: target, Name: target}, room, color)
	if err != nil {
		return err
	}
	return sent(r.presenter.Text(room, r.formatter.OfferCreated(duelpresenter.ToOfferView(offer), r.reg.OfferTTL())))
}

func (r *Router) accept(ctx context.Context, room string, me duel.Player) error {
	offer, ok := r.reg.OfferFor(me.ID)
	if !ok {
		return duel.ErrOfferNotFound
	}
	st, err := r.reg.AcceptAs(ctx, offer.ID, me)
	if err != nil {
		return err
	}
	text := r.formatter.Start(duelpresenter.ToSessionView(st), r.reg.InitialClock())
	return sent(r.presenter.Board(ctx, room, text, st, duel.White))
}

func (r *Router) closeOffer(ctx context.Context, room string, me duel.Player, op func(context.Context, string, string) (duel.Offer, error)) error {
	offer, ok := r.reg.OfferFor(me.ID)
	if !ok {
		return duel.ErrOfferNotFound
	}
	closed, err := op(ctx, offer.ID, me.ID)
	if err != nil {
		return err
	}
	return sent(r.presenter.Text(room, r.formatter.OfferClosed(duelpresenter.ToOfferView(closed))))
}

func (r *Router) legalTargets(ctx context.Context, room string, me duel.Player, from string) error {
	return r.withSession(room, me, func(key string) error {
		moves, err := r.disp.LegalTargets(ctx, key, me.ID, from)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(moves))
		targets := make([]string, 0, len(moves))
		for _, mv := range moves {
			if !seen[mv.To] {
				seen[mv.To] = true
				targets = append(targets, mv.To)
			}
		}
		sort.Strings(targets)
		return sent(r.presenter.Text(room, r.formatter.LegalTargets(from, targets)))
	})
}

// present renders a dispatcher outcome.
func (r *Router) present(ctx context.Context, room string, out duel.Outcome, err error) error {
	if err != nil {
		return err
	}
	view := duelpresenter.ToSessionView(out.State)
	switch out.Kind {
	case duel.OutcomeUpdated:
		return sent(r.presenter.Board(ctx, room, r.formatter.Move(view, out.SAN), out.State, out.State.SideToMove))
	case duel.OutcomeAwaitingPromotion:
		return sent(r.presenter.Text(room, r.formatter.Promotion(view)))
	case duel.OutcomeDrawOffered:
		return sent(r.presenter.Text(room, r.formatter.DrawOffered(view)))
	case duel.OutcomeAlreadyOffered:
		return sent(r.presenter.Text(room, r.formatter.DrawAlreadyOffered()))
	case duel.OutcomeTimeReport:
		return sent(r.presenter.Text(room, r.formatter.Time(view)))
	case duel.OutcomeBoard:
		return sent(r.presenter.Board(ctx, room, r.formatter.Board(view), out.State, out.State.SideToMove))
	case duel.OutcomeEnded:
		if out.Record == nil {
			return duel.ErrGameOver
		}
		return sent(duelpresenter.AnnounceEnd(ctx, r.presenter, r.formatter, out.State, out.Record))
	}
	return nil
}

func (r *Router) recent(ctx context.Context, room string, me duel.Player, args []string) error {
	if r.history == nil {
		return errHistoryDisabled
	}
	limit := recordstore.DefaultRecentLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return duel.ErrInvalidArgs
		}
		limit = n
	}
	recs, err := r.history.Recent(ctx, me.ID, limit)
	if err != nil {
		return err
	}
	viewer := dueldto.Player{ID: me.ID, Name: me.DisplayName()}
	return sent(r.presenter.Text(room, r.formatter.History(viewer, duelpresenter.ToGameSummaries(recs))))
}

func (r *Router) pgn(ctx context.Context, room, key string) error {
	if r.history == nil {
		return errHistoryDisabled
	}
	rec, err := r.history.Get(ctx, strings.TrimSpace(key))
	if errors.Is(err, recordstore.ErrNotFound) {
		return sent(r.presenter.Text(room, r.formatter.PGNNotFound(key)))
	}
	if err != nil {
		return err
	}
	return sent(r.presenter.Text(room, r.formatter.PGN(duelpresenter.ToGameSummary(rec))))
}

var errHistoryDisabled = errors.New("record history is not configured")

func sanitizeUserArg(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
