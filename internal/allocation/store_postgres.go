package allocation

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

// PostgresStore persists outcomes and enrollments.
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

func (s *PostgresStore) UpsertOutcome(ctx context.Context, o *Outcome) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO outcomes (application_id, stage_id, status, reason, computed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (application_id, stage_id) DO UPDATE
		 SET status = EXCLUDED.status, reason = EXCLUDED.reason, computed_at = EXCLUDED.computed_at`,
		o.ApplicationID.String(), o.StageID.String(), o.Status, o.Reason, o.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOutcome(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*Outcome, error) {
	o := &Outcome{ApplicationID: appID, StageID: stageID}
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT status, reason, computed_at FROM outcomes
		 WHERE application_id = $1 AND stage_id = $2`,
		appID.String(), stageID.String()).Scan(&o.Status, &o.Reason, &o.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select outcome: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) ListOutcomesByStage(ctx context.Context, stageID id.StageID) ([]*Outcome, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT application_id, status, reason, computed_at FROM outcomes
		 WHERE stage_id = $1 ORDER BY application_id`, stageID.String())
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []*Outcome
	for rows.Next() {
		o := &Outcome{StageID: stageID}
		var rawApp string
		if err := rows.Scan(&rawApp, &o.Status, &o.Reason, &o.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		appID, err := id.ParseApplicationID(rawApp)
		if err != nil {
			return nil, fmt.Errorf("outcome application id: %w", err)
		}
		o.ApplicationID = appID
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteOutcomesByStage(ctx context.Context, stageID id.StageID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM outcomes WHERE stage_id = $1`, stageID.String())
	if err != nil {
		return fmt.Errorf("delete outcomes: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateEnrollment(ctx context.Context, e *Enrollment) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO enrollments (id, application_id, stage_id, seat_id, course_id, track, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID.String(), e.ApplicationID.String(), e.StageID.String(), e.SeatID.String(),
		e.CourseID.String(), e.Track, e.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

const enrollmentColumns = `id, application_id, stage_id, seat_id, course_id, track, created_at`

func (s *PostgresStore) GetEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*Enrollment, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, enrollmentID.String())
	return scanEnrollment(row)
}

func (s *PostgresStore) FindEnrollment(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*Enrollment, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE application_id = $1 AND stage_id = $2`,
		appID.String(), stageID.String())
	return scanEnrollment(row)
}

func (s *PostgresStore) ListEnrollmentsByStage(ctx context.Context, stageID id.StageID) ([]*Enrollment, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE stage_id = $1 ORDER BY created_at`,
		stageID.String())
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM enrollments WHERE id = $1`, enrollmentID.String())
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row rowScanner) (*Enrollment, error) {
	var (
		e                                    Enrollment
		rawID, rawApp, rawStage, rawSeat, rawCourse string
	)
	err := row.Scan(&rawID, &rawApp, &rawStage, &rawSeat, &rawCourse, &e.Track, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan enrollment: %w", err)
	}

	enrollmentID, err := id.ParseEnrollmentID(rawID)
	if err != nil {
		return nil, fmt.Errorf("enrollment id: %w", err)
	}
	appID, err := id.ParseApplicationID(rawApp)
	if err != nil {
		return nil, fmt.Errorf("enrollment application id: %w", err)
	}
	stageID, err := id.ParseStageID(rawStage)
	if err != nil {
		return nil, fmt.Errorf("enrollment stage id: %w", err)
	}
	seatID, err := id.ParseSeatID(rawSeat)
	if err != nil {
		return nil, fmt.Errorf("enrollment seat id: %w", err)
	}
	courseID, err := id.ParseCourseID(rawCourse)
	if err != nil {
		return nil, fmt.Errorf("enrollment course id: %w", err)
	}
	e.ID, e.ApplicationID, e.StageID, e.SeatID, e.CourseID = enrollmentID, appID, stageID, seatID, courseID
	return &e, nil
}
