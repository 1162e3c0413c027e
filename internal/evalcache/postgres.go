package evalcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS position_evals (
		fen        TEXT PRIMARY KEY,
		cp         INTEGER,
		mate       INTEGER,
		source     TEXT NOT NULL,
		depth      INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// OpenPostgres opens, pings and migrates the evaluation table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create position_evals: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, fen string) (evaluation.Result, bool, error) {
	const query = `
		SELECT cp, mate, source, depth
		FROM position_evals
		WHERE fen = $1`

	var (
		cp, mate sql.NullInt64
		source   string
		depth    int
	)
	err := s.db.QueryRowContext(ctx, query, fen).Scan(&cp, &mate, &source, &depth)
	if errors.Is(err, sql.ErrNoRows) {
		return evaluation.Result{}, false, nil
	}
	if err != nil {
		return evaluation.Result{}, false, fmt.Errorf("select position eval: %w", err)
	}
	res := evaluation.Result{FEN: fen, Source: evaluation.Source(source), Depth: depth}
	if cp.Valid {
		res.Score.CP = intPtr(int(cp.Int64))
	}
	if mate.Valid {
		res.Score.Mate = intPtr(int(mate.Int64))
	}
	return res, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, res evaluation.Result) error {
	const query = `
		INSERT INTO position_evals (fen, cp, mate, source, depth)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fen) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query, res.FEN, nullInt(res.Score.CP), nullInt(res.Score.Mate), string(res.Source), res.Depth); err != nil {
		return fmt.Errorf("insert position eval: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v int) *int { return &v }
