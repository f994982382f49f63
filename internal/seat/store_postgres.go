package seat

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

// PostgresStore persists seats. Occupy uses SELECT ... FOR UPDATE so two
// allocator passes can never fill the same seat.
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

func (s *PostgresStore) CreateBatch(ctx context.Context, seats []*Seat) error {
	for _, st := range seats {
		_, err := s.q(ctx).ExecContext(ctx,
			`INSERT INTO seats (id, edition_id, course_id, track) VALUES ($1, $2, $3, $4)`,
			st.ID.String(), st.EditionID.String(), st.CourseID.String(), st.Track)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert seat: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListGroups(ctx context.Context, editionID id.EditionID) ([]Group, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT course_id, track, COUNT(*) FROM seats
		 WHERE edition_id = $1 GROUP BY course_id, track ORDER BY course_id, track`,
		editionID.String())
	if err != nil {
		return nil, fmt.Errorf("list seat groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		var rawCourse string
		if err := rows.Scan(&rawCourse, &g.Track, &g.Total); err != nil {
			return nil, fmt.Errorf("scan seat group: %w", err)
		}
		courseID, err := id.ParseCourseID(rawCourse)
		if err != nil {
			return nil, fmt.Errorf("seat group course id: %w", err)
		}
		g.CourseID = courseID
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *PostgresStore) CountFree(ctx context.Context, editionID id.EditionID, courseID id.CourseID, track string) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats
		 WHERE edition_id = $1 AND course_id = $2 AND track = $3 AND occupied_by IS NULL`,
		editionID.String(), courseID.String(), track).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count free seats: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Occupy(ctx context.Context, editionID id.EditionID, courseID id.CourseID, track string, appID id.ApplicationID) (*Seat, error) {
	var rawSeat string
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id FROM seats
		 WHERE edition_id = $1 AND course_id = $2 AND track = $3 AND occupied_by IS NULL
		 ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED`,
		editionID.String(), courseID.String(), track).Scan(&rawSeat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("select free seat: %w", err)
	}

	_, err = s.q(ctx).ExecContext(ctx,
		`UPDATE seats SET occupied_by = $1 WHERE id = $2`, appID.String(), rawSeat)
	if err != nil {
		return nil, fmt.Errorf("occupy seat: %w", err)
	}

	seatID, err := id.ParseSeatID(rawSeat)
	if err != nil {
		return nil, fmt.Errorf("seat id: %w", err)
	}
	occupant := appID
	return &Seat{ID: seatID, EditionID: editionID, CourseID: courseID, Track: track, OccupiedBy: &occupant}, nil
}

func (s *PostgresStore) Release(ctx context.Context, appID id.ApplicationID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE seats SET occupied_by = NULL WHERE occupied_by = $1`, appID.String())
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RetagFree(ctx context.Context, editionID id.EditionID, courseID id.CourseID, from, to string) (int, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE seats SET track = $1
		 WHERE edition_id = $2 AND course_id = $3 AND track = $4 AND occupied_by IS NULL`,
		to, editionID.String(), courseID.String(), from)
	if err != nil {
		return 0, fmt.Errorf("retag free seats: %w", err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("retag free seats: %w", err)
	}
	return int(moved), nil
}
