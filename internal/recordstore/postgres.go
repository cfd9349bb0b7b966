package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-duel-bot/internal/domain"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS duel_games (
    game_key    TEXT PRIMARY KEY,
    room        TEXT NOT NULL,
    white_id    TEXT NOT NULL,
    white_name  TEXT NOT NULL,
    black_id    TEXT NOT NULL,
    black_name  TEXT NOT NULL,
    reason      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    result      TEXT NOT NULL,
    winner_id   TEXT NOT NULL DEFAULT '',
    loser_id    TEXT NOT NULL DEFAULT '',
    moves_uci   JSONB NOT NULL,
    moves_san   JSONB NOT NULL,
    pgn         TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS duel_games_white_idx ON duel_games (white_id, ended_at DESC);
CREATE INDEX IF NOT EXISTS duel_games_black_idx ON duel_games (black_id, ended_at DESC);`

const recordColumns = `game_key, room, white_id, white_name, black_id, black_name,
        reason, detail, result, winner_id, loser_id, moves_uci, moves_san, pgn,
        started_at, ended_at`

// Postgres stores records in the duel_games table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Save inserts the record; a second save of the same key is ignored.
func (p *Postgres) Save(ctx context.Context, rec *domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	q := `INSERT INTO duel_games (` + recordColumns + `, duration_ms)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
      ON CONFLICT (game_key) DO NOTHING`
	_, err := p.db.ExecContext(ctx, q,
		rec.Key, rec.Room,
		rec.WhiteID, rec.WhiteName,
		rec.BlackID, rec.BlackName,
		string(rec.Reason), rec.Detail, rec.Result, rec.WinnerID, rec.LoserID,
		encodeMoves(rec.MovesUCI), encodeMoves(rec.MovesSAN), rec.PGN,
		rec.StartedAt, rec.EndedAt, rec.Duration().Milliseconds(),
	)
	return err
}

func (p *Postgres) Get(ctx context.Context, key string) (*domain.GameRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM duel_games WHERE game_key = $1`, strings.TrimSpace(key))
	rec, err := scanPostgres(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) Recent(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM duel_games
      WHERE white_id = $1 OR black_id = $1
      ORDER BY ended_at DESC, game_key DESC LIMIT $2`, strings.TrimSpace(playerID), normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.GameRecord
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgres(row rowScanner) (*domain.GameRecord, error) {
	var (
		rec              domain.GameRecord
		reason, uci, san string
	)
	if err := row.Scan(&rec.Key, &rec.Room, &rec.WhiteID, &rec.WhiteName, &rec.BlackID, &rec.BlackName,
		&reason, &rec.Detail, &rec.Result, &rec.WinnerID, &rec.LoserID, &uci, &san, &rec.PGN,
		&rec.StartedAt, &rec.EndedAt); err != nil {
		return nil, err
	}
	rec.Reason = domain.EndReason(reason)
	rec.MovesUCI = decodeMoves(uci)
	rec.MovesSAN = decodeMoves(san)
	return &rec, nil
}
