package duel_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/chessrules"
	"github.com/park285/chess-duel-bot/internal/domain"
	"github.com/park285/chess-duel-bot/internal/duel"
)

var (
	alice = duel.Player{ID: "u-alice", Name: "Alice"}
	bob   = duel.Player{ID: "u-bob", Name: "Bob"}
	carol = duel.Player{ID: "u-carol", Name: "Carol"}
	dave  = duel.Player{ID: "u-dave", Name: "Dave"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type memRecorder struct {
	mu   sync.Mutex
	recs []*domain.GameRecord
}

func (m *memRecorder) Save(_ context.Context, rec *domain.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memRecorder) all() []*domain.GameRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.GameRecord(nil), m.recs...)
}

type memNotifier struct {
	mu      sync.Mutex
	ended   []duel.Ended
	expired []duel.Offer
}

func (n *memNotifier) SessionEnded(_ context.Context, ev duel.Ended) {
	n.mu.Lock()
	n.ended = append(n.ended, ev)
	n.mu.Unlock()
}

func (n *memNotifier) OfferExpired(_ context.Context, o duel.Offer) {
	n.mu.Lock()
	n.expired = append(n.expired, o)
	n.mu.Unlock()
}

func (n *memNotifier) expiredCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.expired)
}

type harness struct {
	ctx      context.Context
	clock    *fakeClock
	recorder *memRecorder
	notifier *memNotifier
	reg      *duel.Registry
	disp     *duel.Dispatcher
	dog      *duel.Watchdog
}

func newHarness(t *testing.T, opts ...duel.Option) *harness {
	t.Helper()
	return newHarnessWithRules(t, chessrules.New(), opts...)
}

func newHarnessWithRules(t *testing.T, rules duel.Rules, opts ...duel.Option) *harness {
	t.Helper()
	h := &harness{
		ctx:      context.Background(),
		clock:    &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		recorder: &memRecorder{},
		notifier: &memNotifier{},
	}
	base := []duel.Option{
		duel.WithNow(h.clock.Now),
		duel.WithRecorder(h.recorder),
		duel.WithNotifier(h.notifier),
	}
	h.reg = duel.NewRegistry(rules, append(base, opts...)...)
	h.disp = duel.NewDispatcher(h.reg)
	h.dog = duel.NewWatchdog(h.reg)
	return h
}

// start opens a game with alice as white and bob as black.
func (h *harness) start(t *testing.T) string {
	t.Helper()
	offer, err := h.reg.TryStart(h.ctx, alice, bob, "room-1", duel.ColorWhite)
	require.NoError(t, err)
	st, err := h.reg.Accept(h.ctx, offer.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, alice, st.White)
	return st.Key
}

func (h *harness) move(t *testing.T, key string, p duel.Player, uci string) duel.Outcome {
	t.Helper()
	mv, err := duel.ParseMove(uci)
	require.NoError(t, err)
	out, err := h.disp.SubmitMove(h.ctx, key, p.ID, mv)
	require.NoError(t, err, "move %s", uci)
	return out
}
