package candidate

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

// PostgresStore persists applications and their scores.
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

func (s *PostgresStore) ImportBatch(ctx context.Context, apps []*Application) error {
	for _, app := range apps {
		_, err := s.q(ctx).ExecContext(ctx,
			`INSERT INTO applications
			 (id, edition_id, course_id, track, name, birth_date, score_overall, score_essay, score_subject_a, rank)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			app.ID.String(), app.EditionID.String(), app.CourseID.String(), app.Track,
			app.Name, app.BirthDate, app.Score.Overall, app.Score.Essay, app.Score.SubjectA, app.Score.Rank)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert application: %w", err)
		}
	}
	return nil
}

const appColumns = `id, edition_id, course_id, track, name, birth_date, call_id, score_overall, score_essay, score_subject_a, rank`

func (s *PostgresStore) Get(ctx context.Context, appID id.ApplicationID) (*Application, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+appColumns+` FROM applications WHERE id = $1`, appID.String())
	return scanApplication(row)
}

func (s *PostgresStore) CountByEdition(ctx context.Context, editionID id.EditionID) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE edition_id = $1`, editionID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByGroup(ctx context.Context, editionID id.EditionID, courseID id.CourseID, track string) ([]*Application, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+appColumns+` FROM applications
		 WHERE edition_id = $1 AND course_id = $2 AND track = $3 ORDER BY id`,
		editionID.String(), courseID.String(), track)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return collectApplications(rows)
}

func (s *PostgresStore) ListByCall(ctx context.Context, callID id.CallID) ([]*Application, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+appColumns+` FROM applications WHERE call_id = $1 ORDER BY rank`, callID.String())
	if err != nil {
		return nil, fmt.Errorf("list call applications: %w", err)
	}
	return collectApplications(rows)
}

func (s *PostgresStore) AssignCall(ctx context.Context, appID id.ApplicationID, callID id.CallID) error {
	return s.exec(ctx, "assign call",
		`UPDATE applications SET call_id = $1 WHERE id = $2`, callID.String(), appID.String())
}

func (s *PostgresStore) UpdateScore(ctx context.Context, appID id.ApplicationID, score Score) error {
	return s.exec(ctx, "update score",
		`UPDATE applications SET score_overall = $1, score_essay = $2, score_subject_a = $3 WHERE id = $4`,
		score.Overall, score.Essay, score.SubjectA, appID.String())
}

func (s *PostgresStore) SetRank(ctx context.Context, appID id.ApplicationID, rank int) error {
	return s.exec(ctx, "set rank",
		`UPDATE applications SET rank = $1 WHERE id = $2`, rank, appID.String())
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*Application, error) {
	var (
		app                         Application
		rawID, rawEdition, rawCourse string
		rawCall                     sql.NullString
	)
	err := row.Scan(&rawID, &rawEdition, &rawCourse, &app.Track, &app.Name, &app.BirthDate,
		&rawCall, &app.Score.Overall, &app.Score.Essay, &app.Score.SubjectA, &app.Score.Rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}

	appID, err := id.ParseApplicationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("application id: %w", err)
	}
	editionID, err := id.ParseEditionID(rawEdition)
	if err != nil {
		return nil, fmt.Errorf("application edition id: %w", err)
	}
	courseID, err := id.ParseCourseID(rawCourse)
	if err != nil {
		return nil, fmt.Errorf("application course id: %w", err)
	}
	app.ID, app.EditionID, app.CourseID = appID, editionID, courseID

	if rawCall.Valid {
		callID, err := id.ParseCallID(rawCall.String)
		if err != nil {
			return nil, fmt.Errorf("application call id: %w", err)
		}
		app.CallID = &callID
	}
	return &app, nil
}

func collectApplications(rows *sql.Rows) ([]*Application, error) {
	defer rows.Close()
	var out []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}
