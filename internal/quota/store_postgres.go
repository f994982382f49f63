package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
)

// PostgresStore persists the allowed-transition catalog.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) ListAllowed(ctx context.Context) ([]Transition, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT from_track, to_track FROM allowed_transitions ORDER BY from_track, to_track`)
	if err != nil {
		return nil, fmt.Errorf("list allowed transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.From, &t.To); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddAllowed(ctx context.Context, t Transition) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO allowed_transitions (from_track, to_track) VALUES ($1, $2)`, t.From, t.To)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}
