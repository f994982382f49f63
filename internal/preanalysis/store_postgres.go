package preanalysis

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

// PostgresStore persists the consensus review state. Get takes a row
// lock so concurrent submissions for the same application serialize.
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

func (s *PostgresStore) CreatePhase(ctx context.Context, phase *Phase) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO analysis_phases (id, stage_id, name, required_evaluators, requires_supervisor)
		 VALUES ($1, $2, $3, $4, $5)`,
		phase.ID.String(), phase.StageID.String(), phase.Name, phase.RequiredEvaluators, phase.RequiresSupervisor)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert phase: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPhase(ctx context.Context, phaseID id.PhaseID) (*Phase, error) {
	var (
		phase    Phase
		rawStage string
	)
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT stage_id, name, required_evaluators, requires_supervisor
		 FROM analysis_phases WHERE id = $1`, phaseID.String()).
		Scan(&rawStage, &phase.Name, &phase.RequiredEvaluators, &phase.RequiresSupervisor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select phase: %w", err)
	}
	phase.ID = phaseID
	stageID, err := id.ParseStageID(rawStage)
	if err != nil {
		return nil, fmt.Errorf("phase stage id: %w", err)
	}
	phase.StageID = stageID
	return &phase, nil
}

func (s *PostgresStore) Enqueue(ctx context.Context, app *PreAnalysisApplication) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO pre_analysis_applications
		 (id, phase_id, application_id, stage_id, situation, score_overall, score_essay, score_subject_a, rank)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		app.ID.String(), app.PhaseID.String(), app.ApplicationID.String(), app.StageID.String(),
		app.Situation, app.Scores.Overall, app.Scores.Essay, app.Scores.SubjectA, app.Scores.Rank)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert pre-analysis application: %w", err)
	}
	return nil
}

const preAppColumns = `id, phase_id, application_id, stage_id, situation, score_overall, score_essay, score_subject_a, rank`

func (s *PostgresStore) Get(ctx context.Context, preID id.PreAnalysisID) (*PreAnalysisApplication, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+preAppColumns+` FROM pre_analysis_applications WHERE id = $1 FOR UPDATE`,
		preID.String())
	return scanPreApp(row)
}

func (s *PostgresStore) FindByApplication(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (*PreAnalysisApplication, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+preAppColumns+` FROM pre_analysis_applications
		 WHERE application_id = $1 AND stage_id = $2`,
		appID.String(), stageID.String())
	return scanPreApp(row)
}

func (s *PostgresStore) ListBySituation(ctx context.Context, phaseID id.PhaseID, situation string) ([]*PreAnalysisApplication, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+preAppColumns+` FROM pre_analysis_applications
		 WHERE phase_id = $1 AND situation = $2 ORDER BY id`,
		phaseID.String(), situation)
	if err != nil {
		return nil, fmt.Errorf("list pre-analysis applications: %w", err)
	}
	defer rows.Close()

	var out []*PreAnalysisApplication
	for rows.Next() {
		app, err := scanPreApp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, app *PreAnalysisApplication) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE pre_analysis_applications
		 SET situation = $1, score_overall = $2, score_essay = $3, score_subject_a = $4, rank = $5
		 WHERE id = $6`,
		app.Situation, app.Scores.Overall, app.Scores.Essay, app.Scores.SubjectA, app.Scores.Rank,
		app.ID.String())
	if err != nil {
		return fmt.Errorf("update pre-analysis application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pre-analysis application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountUnresolvedByStage(ctx context.Context, stageID id.StageID) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pre_analysis_applications
		 WHERE stage_id = $1 AND situation NOT IN ($2, $3)`,
		stageID.String(), SituationAccepted, SituationRejected).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unresolved applications: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpsertEvaluation(ctx context.Context, eval *Evaluation) (bool, error) {
	var inserted bool
	err := s.q(ctx).QueryRowContext(ctx,
		`INSERT INTO evaluations (pre_analysis_id, reviewer_id, verdict, reason_code, supervisor, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (pre_analysis_id, reviewer_id) DO UPDATE
		 SET verdict = EXCLUDED.verdict, reason_code = EXCLUDED.reason_code,
		     supervisor = EXCLUDED.supervisor, submitted_at = EXCLUDED.submitted_at
		 RETURNING (xmax = 0)`,
		eval.PreAnalysisID.String(), eval.ReviewerID.String(), eval.Verdict, eval.ReasonCode,
		eval.Supervisor, eval.SubmittedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert evaluation: %w", err)
	}
	return !inserted, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, preID id.PreAnalysisID) ([]Evaluation, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT reviewer_id, verdict, reason_code, supervisor, submitted_at
		 FROM evaluations WHERE pre_analysis_id = $1 ORDER BY submitted_at`,
		preID.String())
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		ev := Evaluation{PreAnalysisID: preID}
		var rawReviewer string
		if err := rows.Scan(&rawReviewer, &ev.Verdict, &ev.ReasonCode, &ev.Supervisor, &ev.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		reviewerID, err := id.ParseReviewerID(rawReviewer)
		if err != nil {
			return nil, fmt.Errorf("evaluation reviewer id: %w", err)
		}
		ev.ReviewerID = reviewerID
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteEvaluations(ctx context.Context, preID id.PreAnalysisID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM evaluations WHERE pre_analysis_id = $1`, preID.String())
	if err != nil {
		return fmt.Errorf("delete evaluations: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMailbox(ctx context.Context, phaseID id.PhaseID, reviewerID id.ReviewerID) (*Mailbox, error) {
	box := &Mailbox{PhaseID: phaseID, ReviewerID: reviewerID}
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT total, resolved, created_at FROM mailboxes
		 WHERE phase_id = $1 AND reviewer_id = $2 FOR UPDATE`,
		phaseID.String(), reviewerID.String()).
		Scan(&box.Total, &box.Resolved, &box.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select mailbox: %w", err)
	}

	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT pre_analysis_id FROM mailbox_items
		 WHERE phase_id = $1 AND reviewer_id = $2 ORDER BY position`,
		phaseID.String(), reviewerID.String())
	if err != nil {
		return nil, fmt.Errorf("list mailbox items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan mailbox item: %w", err)
		}
		preID, err := id.ParsePreAnalysisID(raw)
		if err != nil {
			return nil, fmt.Errorf("mailbox item id: %w", err)
		}
		box.Assigned = append(box.Assigned, preID)
	}
	return box, rows.Err()
}

func (s *PostgresStore) SaveMailbox(ctx context.Context, box *Mailbox) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO mailboxes (phase_id, reviewer_id, total, resolved, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (phase_id, reviewer_id) DO UPDATE
		 SET total = EXCLUDED.total, resolved = EXCLUDED.resolved`,
		box.PhaseID.String(), box.ReviewerID.String(), box.Total, box.Resolved, box.CreatedAt)
	if err != nil {
		return fmt.Errorf("save mailbox: %w", err)
	}

	for pos, preID := range box.Assigned {
		_, err := s.q(ctx).ExecContext(ctx,
			`INSERT INTO mailbox_items (phase_id, reviewer_id, pre_analysis_id, position)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (phase_id, reviewer_id, pre_analysis_id) DO NOTHING`,
			box.PhaseID.String(), box.ReviewerID.String(), preID.String(), pos)
		if err != nil {
			return fmt.Errorf("save mailbox item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) AddReason(ctx context.Context, reason RejectionReason) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO rejection_reasons (code, description) VALUES ($1, $2)`,
		reason.Code, reason.Description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert rejection reason: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReason(ctx context.Context, code string) (*RejectionReason, error) {
	reason := &RejectionReason{Code: code}
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT description FROM rejection_reasons WHERE code = $1`, code).
		Scan(&reason.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select rejection reason: %w", err)
	}
	return reason, nil
}

func (s *PostgresStore) MarkAdjusted(ctx context.Context, preID id.PreAnalysisID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO adjustment_queue (pre_analysis_id) VALUES ($1)`, preID.String())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("mark adjustment: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreApp(row rowScanner) (*PreAnalysisApplication, error) {
	var (
		app                            PreAnalysisApplication
		rawID, rawPhase, rawApp, rawSt string
	)
	err := row.Scan(&rawID, &rawPhase, &rawApp, &rawSt, &app.Situation,
		&app.Scores.Overall, &app.Scores.Essay, &app.Scores.SubjectA, &app.Scores.Rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pre-analysis application: %w", err)
	}

	preID, err := id.ParsePreAnalysisID(rawID)
	if err != nil {
		return nil, fmt.Errorf("pre-analysis id: %w", err)
	}
	phaseID, err := id.ParsePhaseID(rawPhase)
	if err != nil {
		return nil, fmt.Errorf("pre-analysis phase id: %w", err)
	}
	appID, err := id.ParseApplicationID(rawApp)
	if err != nil {
		return nil, fmt.Errorf("pre-analysis application id: %w", err)
	}
	stageID, err := id.ParseStageID(rawSt)
	if err != nil {
		return nil, fmt.Errorf("pre-analysis stage id: %w", err)
	}
	app.ID, app.PhaseID, app.ApplicationID, app.StageID = preID, phaseID, appID, stageID
	return &app, nil
}
