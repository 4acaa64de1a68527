package usage

import (
	"context"
	"database/sql"
	"fmt"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed counter store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Increment(ctx context.Context, name string) (int64, error) {
	if !validCounter(name) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCounter, name)
	}
	var value int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO stats (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = stats.value + 1
RETURNING value`, name).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *pgStore) Snapshot(ctx context.Context) (map[string]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name, value FROM stats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

func (s *pgStore) Reset(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE stats SET value = 0`)
	return err
}
