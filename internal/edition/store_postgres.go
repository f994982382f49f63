package edition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
)

// PostgresStore persists editions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, e *Edition) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO editions (id, process_name, year, term) VALUES ($1, $2, $3, $4)`,
		e.ID.String(), e.ProcessName, e.Year, e.Term)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert edition: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, editionID id.EditionID) (*Edition, error) {
	e := &Edition{ID: editionID}
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT process_name, year, term FROM editions WHERE id = $1`, editionID.String()).
		Scan(&e.ProcessName, &e.Year, &e.Term)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select edition: %w", err)
	}
	return e, nil
}
