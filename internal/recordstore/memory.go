package recordstore

import (
	"context"
	"strings"
	"sync"

	"github.com/park285/chess-duel-bot/internal/domain"
)

// Memory keeps records in process. Used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	byKey    map[string]*domain.GameRecord
	byPlayer map[string][]*domain.GameRecord
}

func NewMemory() *Memory {
	return &Memory{
		byKey:    make(map[string]*domain.GameRecord),
		byPlayer: make(map[string][]*domain.GameRecord),
	}
}

func (m *Memory) Save(ctx context.Context, rec *domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[rec.Key]; exists {
		return nil
	}
	cp := cloneRecord(rec)
	m.byKey[cp.Key] = cp
	for _, id := range []string{cp.WhiteID, cp.BlackID} {
		if id = strings.TrimSpace(id); id != "" {
			m.byPlayer[id] = append(m.byPlayer[id], cp)
		}
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byKey[strings.TrimSpace(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *Memory) Recent(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	m.mu.RLock()
	items := append([]*domain.GameRecord(nil), m.byPlayer[strings.TrimSpace(playerID)]...)
	m.mu.RUnlock()

	sortRecent(items)
	if n := normalizeLimit(limit); len(items) > n {
		items = items[:n]
	}
	out := make([]*domain.GameRecord, 0, len(items))
	for _, rec := range items {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
