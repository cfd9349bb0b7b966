package command

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultLaneBacklog bounds queued lines per room before new ones are dropped.
const DefaultLaneBacklog = 64

// lanes runs jobs one at a time per key, in submission order.
// Different keys run concurrently. A key's worker exits once its backlog drains.
type lanes struct {
	mu      sync.Mutex
	queues  map[string][]func()
	closed  bool
	backlog int
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func newLanes(backlog int, logger *zap.Logger) *lanes {
	if backlog <= 0 {
		backlog = DefaultLaneBacklog
	}
	return &lanes{queues: make(map[string][]func()), backlog: backlog, logger: logger}
}

// submit queues job behind earlier jobs for key. It reports false when the
// lanes are closed or the key's backlog is full.
func (l *lanes) submit(key string, job func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	q, running := l.queues[key]
	if len(q) >= l.backlog {
		l.mu.Unlock()
		l.logger.Warn("duel_lane_full", zap.String("room", key), zap.Int("backlog", l.backlog))
		return false
	}
	l.queues[key] = append(q, job)
	if !running {
		l.wg.Add(1)
		go l.drain(key)
	}
	l.mu.Unlock()
	return true
}

func (l *lanes) drain(key string) {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		q := l.queues[key]
		if len(q) == 0 {
			delete(l.queues, key)
			l.mu.Unlock()
			return
		}
		job := q[0]
		q[0] = nil
		l.queues[key] = q[1:]
		l.mu.Unlock()

		l.run(key, job)
	}
}

func (l *lanes) run(key string, job func()) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("duel_lane_panic", zap.String("room", key), zap.Error(fmt.Errorf("%v", p)))
		}
	}()
	job()
}

// close stops accepting jobs and waits for queued ones to finish.
func (l *lanes) close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
