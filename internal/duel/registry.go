package duel

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/obslog"
)

const (
	DefaultOfferTTL = 5 * time.Minute

	recordEvent = "Kakao Duel"
	recordSite  = "Iris"
)

// Registry owns every pending offer and live session, plus the busy set that
// binds a player to at most one of them. mu guards the maps only; when a
// session lock is also needed it is taken first.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	offers   map[string]*pendingOffer
	busy     map[string]string // player id -> offer id or session key

	rules    Rules
	recorder Recorder
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	offerTTL     time.Duration
	initialClock time.Duration
	ineligible   map[string]struct{}
	coinFlip     func() bool
}

type pendingOffer struct {
	Offer
	timer *time.Timer
}

type Option func(*Registry)

func WithRecorder(r Recorder) Option {
	return func(reg *Registry) {
		if r != nil {
			reg.recorder = r
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(reg *Registry) {
		if n != nil {
			reg.notifier = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(reg *Registry) {
		if l != nil {
			reg.logger = l
		}
	}
}

// WithNow replaces the wall clock, mostly for tests.
func WithNow(now func() time.Time) Option {
	return func(reg *Registry) {
		if now != nil {
			reg.now = now
		}
	}
}

func WithOfferTTL(d time.Duration) Option {
	return func(reg *Registry) {
		if d > 0 {
			reg.offerTTL = d
		}
	}
}

func WithInitialClock(d time.Duration) Option {
	return func(reg *Registry) {
		if d > 0 {
			reg.initialClock = d
		}
	}
}

// WithIneligible lists accounts that can never be challenged (the bot itself, other bots).
func WithIneligible(ids ...string) Option {
	return func(reg *Registry) {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				reg.ineligible[id] = struct{}{}
			}
		}
	}
}

func NewRegistry(rules Rules, opts ...Option) *Registry {
	r := &Registry{
		sessions:     make(map[string]*Session),
		offers:       make(map[string]*pendingOffer),
		busy:         make(map[string]string),
		rules:        rules,
		recorder:     nopRecorder{},
		notifier:     nopNotifier{},
		logger:       obslog.L(),
		now:          time.Now,
		offerTTL:     DefaultOfferTTL,
		initialClock: DefaultInitialClock,
		ineligible:   make(map[string]struct{}),
		coinFlip:     secureCoinFlip,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules exposes the rules adapter the registry was built with.
func (r *Registry) Rules() Rules { return r.rules }

// Now is the registry's time source.
func (r *Registry) Now() time.Time { return r.now() }

// InitialClock is the per-side budget new sessions start with.
func (r *Registry) InitialClock() time.Duration { return r.initialClock }

func (r *Registry) OfferTTL() time.Duration { return r.offerTTL }

// TryStart records a challenge and binds both players to it.
func (r *Registry) TryStart(ctx context.Context, challenger, opponent Player, room string, color ColorChoice) (Offer, error) {
	challenger.ID = strings.TrimSpace(challenger.ID)
	opponent.ID = strings.TrimSpace(opponent.ID)
	if challenger.ID == "" || strings.TrimSpace(room) == "" {
		return Offer{}, ErrInvalidArgs
	}
	if opponent.ID == "" {
		return Offer{}, ErrInvalidOpponent
	}
	if challenger.ID == opponent.ID {
		return Offer{}, ErrSelfChallenge
	}
	if _, bad := r.ineligible[opponent.ID]; bad {
		return Offer{}, ErrInvalidOpponent
	}
	if color == "" {
		color = ColorWhite
	}

	now := r.now()
	o := &pendingOffer{Offer: Offer{
		ID:         uuid.NewString(),
		Room:       strings.TrimSpace(room),
		Challenger: challenger,
		Opponent:   opponent,
		Color:      color,
		CreatedAt:  now,
		ExpiresAt:  now.Add(r.offerTTL),
		Status:     OfferPending,
	}}

	r.mu.Lock()
	if _, ok := r.busy[challenger.ID]; ok {
		r.mu.Unlock()
		return Offer{}, ErrChallengerBusy
	}
	if _, ok := r.busy[opponent.ID]; ok {
		r.mu.Unlock()
		return Offer{}, ErrTargetBusy
	}
	r.offers[o.ID] = o
	r.busy[challenger.ID] = o.ID
	r.busy[opponent.ID] = o.ID
	id := o.ID
	o.timer = time.AfterFunc(r.offerTTL, func() { r.expireByTimer(id) })
	out := o.Offer
	r.mu.Unlock()

	r.logger.Info("duel_offer_create",
		zap.String("offer_id", out.ID),
		zap.String("room", out.Room),
		zap.String("challenger", challenger.ID),
		zap.String("opponent", opponent.ID),
		zap.String("color", string(color)),
	)
	return out, nil
}

// Accept turns the offer into an active session. Only the addressee may accept.
func (r *Registry) Accept(ctx context.Context, offerID, actorID string) (BoardState, error) {
	return r.AcceptAs(ctx, offerID, Player{ID: actorID})
}

// AcceptAs is Accept with the addressee's display name, which the challenger
// usually cannot supply when the offer is made.
func (r *Registry) AcceptAs(ctx context.Context, offerID string, actor Player) (BoardState, error) {
	actorID := actor.ID
	pos, err := r.rules.NewPosition()
	if err != nil {
		return BoardState{}, adapterErr("new_position", err)
	}

	r.mu.Lock()
	o, ok := r.offers[offerID]
	if !ok {
		r.mu.Unlock()
		return BoardState{}, ErrOfferNotFound
	}
	if o.Opponent.ID != actorID {
		r.mu.Unlock()
		return BoardState{}, ErrNotAddressee
	}
	if strings.TrimSpace(actor.Name) != "" {
		o.Opponent.Name = actor.Name
	}
	now := r.now()
	white, black := r.assignColors(o.Offer)
	s := &Session{
		key:          uuid.NewString(),
		room:         o.Room,
		white:        white,
		black:        black,
		pos:          pos,
		clock:        NewClock(r.initialClock, now),
		phase:        PhaseActive,
		startedAt:    now,
		lastAction:   now,
		earlyAbortOK: true,
	}
	o.timer.Stop()
	delete(r.offers, offerID)
	r.sessions[s.key] = s
	r.busy[white.ID] = s.key
	r.busy[black.ID] = s.key
	r.mu.Unlock()

	r.logger.Info("duel_game_create",
		zap.String("game_id", s.key),
		zap.String("offer_id", offerID),
		zap.String("room", s.room),
		zap.String("white_id", white.ID),
		zap.String("black_id", black.ID),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(r.rules, now), nil
}

// Decline drops the offer. Only the addressee may decline.
func (r *Registry) Decline(ctx context.Context, offerID, actorID string) (Offer, error) {
	return r.closeOffer(offerID, OfferDeclined, func(o *pendingOffer) error {
		if o.Opponent.ID != actorID {
			return ErrNotAddressee
		}
		return nil
	})
}

// Cancel lets the challenger withdraw the offer.
func (r *Registry) Cancel(ctx context.Context, offerID, actorID string) (Offer, error) {
	return r.closeOffer(offerID, OfferCancelled, func(o *pendingOffer) error {
		if o.Challenger.ID != actorID {
			return ErrNotParticipant
		}
		return nil
	})
}

// Expire drops the offer regardless of who asks.
func (r *Registry) Expire(ctx context.Context, offerID string) (Offer, error) {
	return r.closeOffer(offerID, OfferExpired, nil)
}

func (r *Registry) expireByTimer(offerID string) {
	o, err := r.Expire(context.Background(), offerID)
	if err != nil {
		return
	}
	r.logger.Info("duel_offer_expired", zap.String("offer_id", o.ID), zap.String("room", o.Room))
	r.notifier.OfferExpired(context.Background(), o)
}

func (r *Registry) closeOffer(offerID string, status OfferStatus, check func(*pendingOffer) error) (Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok {
		return Offer{}, ErrOfferNotFound
	}
	if check != nil {
		if err := check(o); err != nil {
			return Offer{}, err
		}
	}
	o.timer.Stop()
	delete(r.offers, offerID)
	r.unbindLocked(o.Challenger.ID, offerID)
	r.unbindLocked(o.Opponent.ID, offerID)
	out := o.Offer
	out.Status = status
	return out, nil
}

// OfferFor returns the pending offer playerID is part of.
func (r *Registry) OfferFor(playerID string) (Offer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[r.busy[playerID]]
	if !ok {
		return Offer{}, false
	}
	return o.Offer, true
}

// SessionOf returns the key of the live session playerID plays in.
func (r *Registry) SessionOf(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.busy[playerID]
	if _, ok := r.sessions[key]; !ok {
		return "", false
	}
	return key, true
}

// SessionIn is SessionOf restricted to sessions started in room.
func (r *Registry) SessionIn(playerID, room string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[r.busy[playerID]]
	if !ok || s.room != room {
		return "", false
	}
	return s.key, true
}

// Busy reports whether playerID is bound to an offer or a session.
func (r *Registry) Busy(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.busy[playerID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) lookup(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

func (r *Registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// End terminates the session once. Later or concurrent calls, and calls for
// unknown keys, are no-ops that return nil.
func (r *Registry) End(ctx context.Context, key string, reason domain.EndReason, winner Color) *domain.GameRecord {
	s, ok := r.lookup(key)
	if !ok {
		return nil
	}
	s.mu.Lock()
	rec := r.endLocked(s, r.now(), reason, winner, "")
	s.mu.Unlock()
	r.publish(ctx, rec)
	return rec
}

// endLocked marks s completed, releases its players and builds the record.
// Must be called with s.mu held. Returns nil if s already ended.
func (r *Registry) endLocked(s *Session, now time.Time, reason domain.EndReason, winner Color, detail string) *domain.GameRecord {
	if s.phase == PhaseCompleted {
		return nil
	}
	s.phase = PhaseCompleted
	s.pending = nil
	s.drawOfferBy = ""

	r.mu.Lock()
	delete(r.sessions, s.key)
	r.unbindLocked(s.white.ID, s.key)
	r.unbindLocked(s.black.ID, s.key)
	r.mu.Unlock()

	rec := &domain.GameRecord{
		Key:       s.key,
		Room:      s.room,
		WhiteID:   s.white.ID,
		WhiteName: s.white.DisplayName(),
		BlackID:   s.black.ID,
		BlackName: s.black.DisplayName(),
		Reason:    reason,
		Detail:    detail,
		Result:    resultToken(reason, winner),
		MovesUCI:  append([]string(nil), s.movesUCI...),
		MovesSAN:  append([]string(nil), s.movesSAN...),
		StartedAt: s.startedAt,
		EndedAt:   now,
	}
	if winner != NoColor {
		rec.WinnerID = s.playerOf(winner).ID
		rec.LoserID = s.playerOf(winner.Opponent()).ID
	}
	termination := string(reason)
	if detail != "" {
		termination += " (" + detail + ")"
	}
	pgn, err := r.rules.EncodeRecord(RecordHeader{
		Event:       recordEvent,
		Site:        recordSite,
		Date:        now,
		White:       rec.WhiteName,
		Black:       rec.BlackName,
		Result:      rec.Result,
		Termination: termination,
		TimeControl: timeControlTag(r.initialClock),
	}, rec.MovesSAN)
	if err != nil {
		r.logger.Warn("duel_record_encode_error", zap.String("game_id", s.key), zap.Error(err))
	}
	rec.PGN = pgn
	return rec
}

// publish persists rec outside of any lock. Failures are logged only.
func (r *Registry) publish(ctx context.Context, rec *domain.GameRecord) {
	if rec == nil {
		return
	}
	r.logger.Info("duel_end",
		zap.String("game_id", rec.Key),
		zap.String("reason", string(rec.Reason)),
		zap.String("result", rec.Result),
		zap.String("winner", rec.WinnerID),
		zap.Int("moves", len(rec.MovesUCI)),
	)
	if err := r.recorder.Save(ctx, rec); err != nil {
		r.logger.Error("duel_record_persist_error", zap.String("game_id", rec.Key), zap.Error(err))
		return
	}
	r.logger.Info("duel_record_persist", zap.String("game_id", rec.Key))
}

func (r *Registry) unbindLocked(playerID, binding string) {
	if r.busy[playerID] == binding {
		delete(r.busy, playerID)
	}
}

func (r *Registry) assignColors(o Offer) (white, black Player) {
	switch o.Color {
	case ColorBlack:
		return o.Opponent, o.Challenger
	case ColorRandom:
		if r.coinFlip() {
			return o.Opponent, o.Challenger
		}
	}
	return o.Challenger, o.Opponent
}

func resultToken(reason domain.EndReason, winner Color) string {
	switch {
	case winner == White:
		return domain.ResultWhiteWins
	case winner == Black:
		return domain.ResultBlackWins
	case reason == domain.ReasonDraw:
		return domain.ResultDraw
	default:
		return domain.ResultAborted
	}
}

func timeControlTag(budget time.Duration) string {
	return strconv.FormatInt(int64(budget/time.Second), 10)
}

func secureCoinFlip() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	return err == nil && n.Int64() == 0
}
