package interest

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

// PostgresStore persists interest confirmations. The unique index on
// (application_id, stage_id) enforces one confirmation per pair.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, c *Confirmation) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO interest_confirmations (id, application_id, stage_id, confirmed_at)
		 VALUES ($1, $2, $3, $4)`,
		c.ID.String(), c.ApplicationID.String(), c.StageID.String(), c.ConfirmedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert confirmation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*Confirmation, error) {
	c := &Confirmation{ApplicationID: appID, StageID: stageID}
	var rawID string
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, confirmed_at FROM interest_confirmations
		 WHERE application_id = $1 AND stage_id = $2`,
		appID.String(), stageID.String()).Scan(&rawID, &c.ConfirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select confirmation: %w", err)
	}
	confirmationID, err := id.ParseConfirmationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("confirmation id: %w", err)
	}
	c.ID = confirmationID
	return c, nil
}

func (s *PostgresStore) ListByStage(ctx context.Context, stageID id.StageID) ([]*Confirmation, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id, application_id, confirmed_at FROM interest_confirmations
		 WHERE stage_id = $1 ORDER BY confirmed_at`, stageID.String())
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()

	var out []*Confirmation
	for rows.Next() {
		c := &Confirmation{StageID: stageID}
		var rawID, rawApp string
		if err := rows.Scan(&rawID, &rawApp, &c.ConfirmedAt); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		confirmationID, err := id.ParseConfirmationID(rawID)
		if err != nil {
			return nil, fmt.Errorf("confirmation id: %w", err)
		}
		appID, err := id.ParseApplicationID(rawApp)
		if err != nil {
			return nil, fmt.Errorf("confirmation application id: %w", err)
		}
		c.ID, c.ApplicationID = confirmationID, appID
		out = append(out, c)
	}
	return out, rows.Err()
}
