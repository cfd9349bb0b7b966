package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/park285/chess-duel-bot/internal/domain"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS duel_games (
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
    moves_uci   TEXT NOT NULL,
    moves_san   TEXT NOT NULL,
    pgn         TEXT NOT NULL,
    started_at  INTEGER NOT NULL,
    ended_at    INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS duel_games_white_idx ON duel_games (white_id, ended_at);
CREATE INDEX IF NOT EXISTS duel_games_black_idx ON duel_games (black_id, ended_at);`

// SQLite is a single-file record store for deployments without Postgres.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Save(ctx context.Context, rec *domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO duel_games (`+recordColumns+`, duration_ms)
      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.Key, rec.Room,
		rec.WhiteID, rec.WhiteName,
		rec.BlackID, rec.BlackName,
		string(rec.Reason), rec.Detail, rec.Result, rec.WinnerID, rec.LoserID,
		encodeMoves(rec.MovesUCI), encodeMoves(rec.MovesSAN), rec.PGN,
		toMillis(rec.StartedAt), toMillis(rec.EndedAt), rec.Duration().Milliseconds(),
	)
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (s *SQLite) Get(ctx context.Context, key string) (*domain.GameRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM duel_games WHERE game_key = ?`, strings.TrimSpace(key))
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLite) Recent(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	id := strings.TrimSpace(playerID)
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM duel_games
      WHERE white_id = ? OR black_id = ?
      ORDER BY ended_at DESC, game_key DESC LIMIT ?`, id, id, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.GameRecord
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSQLite(row rowScanner) (*domain.GameRecord, error) {
	var (
		rec              domain.GameRecord
		reason, uci, san string
		started, ended   int64
	)
	if err := row.Scan(&rec.Key, &rec.Room, &rec.WhiteID, &rec.WhiteName, &rec.BlackID, &rec.BlackName,
		&reason, &rec.Detail, &rec.Result, &rec.WinnerID, &rec.LoserID, &uci, &san, &rec.PGN,
		&started, &ended); err != nil {
		return nil, err
	}
	rec.Reason = domain.EndReason(reason)
	rec.MovesUCI = decodeMoves(uci)
	rec.MovesSAN = decodeMoves(san)
	rec.StartedAt = fromMillis(started)
	rec.EndedAt = fromMillis(ended)
	return &rec, nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
