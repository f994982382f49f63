package call

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
	"ingresso/pkg/platform/tx"
)

// PostgresStore persists calls. The unique index on (stage_id,
// course_id, track) backs CreateIfAbsent.
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

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, c *Call) (*Call, bool, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO calls (id, stage_id, course_id, track, seat_count, multiplier)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (stage_id, course_id, track) DO NOTHING`,
		c.ID.String(), c.StageID.String(), c.CourseID.String(), c.Track, c.SeatCount, c.Multiplier)
	if err != nil {
		return nil, false, fmt.Errorf("insert call: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert call: %w", err)
	}
	if inserted > 0 {
		cp := *c
		return &cp, true, nil
	}

	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE stage_id = $1 AND course_id = $2 AND track = $3`,
		c.StageID.String(), c.CourseID.String(), c.Track)
	existing, err := scanCall(row)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

const callColumns = `id, stage_id, course_id, track, seat_count, multiplier`

func (s *PostgresStore) Get(ctx context.Context, callID id.CallID) (*Call, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE id = $1`, callID.String())
	return scanCall(row)
}

func (s *PostgresStore) ListByStage(ctx context.Context, stageID id.StageID) ([]*Call, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE stage_id = $1 ORDER BY course_id, track`,
		stageID.String())
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var out []*Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (*Call, error) {
	var (
		c                           Call
		rawID, rawStage, rawCourse  string
	)
	err := row.Scan(&rawID, &rawStage, &rawCourse, &c.Track, &c.SeatCount, &c.Multiplier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan call: %w", err)
	}

	callID, err := id.ParseCallID(rawID)
	if err != nil {
		return nil, fmt.Errorf("call id: %w", err)
	}
	stageID, err := id.ParseStageID(rawStage)
	if err != nil {
		return nil, fmt.Errorf("call stage id: %w", err)
	}
	courseID, err := id.ParseCourseID(rawCourse)
	if err != nil {
		return nil, fmt.Errorf("call course id: %w", err)
	}
	c.ID, c.StageID, c.CourseID = callID, stageID, courseID
	return &c, nil
}
