package review

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

// PostgresStore persists document reviews with their appeal embedded in
// the same row; a review has at most one appeal.
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

func (s *PostgresStore) Create(ctx context.Context, r *DocumentReview) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO document_reviews (id, confirmation_id, status, valid, notes, reviewed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID.String(), r.ConfirmationID.String(), string(r.Status), r.Valid, r.Notes, r.ReviewedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, r *DocumentReview) error {
	var (
		appealStatus        sql.NullString
		appealJustification sql.NullString
		appealFiledAt       sql.NullTime
		appealResolvedAt    sql.NullTime
	)
	if r.Appeal != nil {
		appealStatus = sql.NullString{String: string(r.Appeal.Status), Valid: true}
		appealJustification = sql.NullString{String: r.Appeal.Justification, Valid: true}
		appealFiledAt = sql.NullTime{Time: r.Appeal.FiledAt, Valid: true}
		if r.Appeal.ResolvedAt != nil {
			appealResolvedAt = sql.NullTime{Time: *r.Appeal.ResolvedAt, Valid: true}
		}
	}

	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE document_reviews
		 SET status = $1, valid = $2, notes = $3, reviewed_at = $4,
		     appeal_status = $5, appeal_justification = $6, appeal_filed_at = $7, appeal_resolved_at = $8
		 WHERE id = $9`,
		string(r.Status), r.Valid, r.Notes, r.ReviewedAt,
		appealStatus, appealJustification, appealFiledAt, appealResolvedAt,
		r.ID.String())
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const reviewColumns = `id, confirmation_id, status, valid, notes, reviewed_at,
	appeal_status, appeal_justification, appeal_filed_at, appeal_resolved_at`

func (s *PostgresStore) Get(ctx context.Context, reviewID id.ReviewID) (*DocumentReview, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM document_reviews WHERE id = $1`, reviewID.String())
	return scanReview(row)
}

func (s *PostgresStore) FindByConfirmation(ctx context.Context, confirmationID id.ConfirmationID) (*DocumentReview, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM document_reviews WHERE confirmation_id = $1`,
		confirmationID.String())
	return scanReview(row)
}

func scanReview(row *sql.Row) (*DocumentReview, error) {
	var (
		r                   DocumentReview
		rawID, rawConf      string
		status              string
		appealStatus        sql.NullString
		appealJustification sql.NullString
		appealFiledAt       sql.NullTime
		appealResolvedAt    sql.NullTime
	)
	err := row.Scan(&rawID, &rawConf, &status, &r.Valid, &r.Notes, &r.ReviewedAt,
		&appealStatus, &appealJustification, &appealFiledAt, &appealResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan review: %w", err)
	}
	r.Status = Status(status)

	reviewID, err := id.ParseReviewID(rawID)
	if err != nil {
		return nil, fmt.Errorf("review id: %w", err)
	}
	confirmationID, err := id.ParseConfirmationID(rawConf)
	if err != nil {
		return nil, fmt.Errorf("review confirmation id: %w", err)
	}
	r.ID, r.ConfirmationID = reviewID, confirmationID

	if appealStatus.Valid {
		appeal := &Appeal{
			Status:        AppealStatus(appealStatus.String),
			Justification: appealJustification.String,
			FiledAt:       appealFiledAt.Time,
		}
		if appealResolvedAt.Valid {
			resolved := appealResolvedAt.Time
			appeal.ResolvedAt = &resolved
		}
		r.Appeal = appeal
	}
	return &r, nil
}
