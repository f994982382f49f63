package stage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
)

// PostgresStore persists stages. The partial unique index on
// (edition_id, campus) WHERE open enforces the single-open-per-scope
// invariant at the storage layer.
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

const stageColumns = `id, edition_id, number, campus, open, public, multiplier, managed_analysis,
	interest_start, interest_end, analysis_start, analysis_end, closed_at`

func (s *PostgresStore) Create(ctx context.Context, st *Stage) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO stages (`+stageColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		st.ID.String(), st.EditionID.String(), st.Number, st.Campus, st.Open, st.Public,
		st.Multiplier, st.ManagedAnalysis,
		st.Schedule.InterestStart, st.Schedule.InterestEnd,
		st.Schedule.AnalysisStart, st.Schedule.AnalysisEnd,
		nullTime(st.ClosedAt))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert stage: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, stageID id.StageID) (*Stage, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE id = $1`, stageID.String())
	return scanStage(row)
}

func (s *PostgresStore) Update(ctx context.Context, st *Stage) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE stages SET open = $1, public = $2, closed_at = $3 WHERE id = $4`,
		st.Open, st.Public, nullTime(st.ClosedAt), st.ID.String())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByEdition(ctx context.Context, editionID id.EditionID) ([]*Stage, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE edition_id = $1 ORDER BY number`,
		editionID.String())
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var out []*Stage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindOpen(ctx context.Context, editionID id.EditionID, campus string) (*Stage, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE edition_id = $1 AND campus = $2 AND open`,
		editionID.String(), campus)
	return scanStage(row)
}

func (s *PostgresStore) HasCampusScoped(ctx context.Context, editionID id.EditionID) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM stages WHERE edition_id = $1 AND campus <> '')`,
		editionID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check campus stages: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (*Stage, error) {
	var st Stage
	var rawID, rawEdition string
	var closedAt sql.NullTime
	err := row.Scan(&rawID, &rawEdition, &st.Number, &st.Campus, &st.Open, &st.Public,
		&st.Multiplier, &st.ManagedAnalysis,
		&st.Schedule.InterestStart, &st.Schedule.InterestEnd,
		&st.Schedule.AnalysisStart, &st.Schedule.AnalysisEnd,
		&closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan stage: %w", err)
	}

	stageID, err := id.ParseStageID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stage id: %w", err)
	}
	editionID, err := id.ParseEditionID(rawEdition)
	if err != nil {
		return nil, fmt.Errorf("stage edition id: %w", err)
	}
	st.ID = stageID
	st.EditionID = editionID
	if closedAt.Valid {
		t := closedAt.Time
		st.ClosedAt = &t
	}
	return &st, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
