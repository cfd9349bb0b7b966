// Package recordstore persists finished duel records.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/park285/chess-duel-bot/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// Store saves records once and serves history lookups.
// Save is idempotent per record key.
type Store interface {
	Save(ctx context.Context, rec *domain.GameRecord) error
	Get(ctx context.Context, key string) (*domain.GameRecord, error)
	Recent(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error)
	Close() error
}

const DefaultRecentLimit = 10

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func validate(rec *domain.GameRecord) error {
	if rec == nil || strings.TrimSpace(rec.Key) == "" {
		return errors.New("record key is required")
	}
	return nil
}

// sortRecent orders newest first, breaking ties by key for stable output.
func sortRecent(list []*domain.GameRecord) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].EndedAt.Equal(list[j].EndedAt) {
			return list[i].EndedAt.After(list[j].EndedAt)
		}
		return list[i].Key > list[j].Key
	})
}

func encodeMoves(moves []string) string {
	if moves == nil {
		moves = []string{}
	}
	raw, _ := json.Marshal(moves)
	return string(raw)
}

func decodeMoves(raw string) []string {
	var out []string
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func cloneRecord(rec *domain.GameRecord) *domain.GameRecord {
	cp := *rec
	cp.MovesUCI = append([]string(nil), rec.MovesUCI...)
	cp.MovesSAN = append([]string(nil), rec.MovesSAN...)
	return &cp
}
