package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/tx"
)

// PostgresStore persists audit events append-only.
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

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO audit_events (timestamp, actor, action, entity, entity_id, detail)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Timestamp, event.Actor.String(), event.Action, event.Entity, event.EntityID, event.Detail)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actor id.UserID) ([]Event, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT timestamp, actor, action, entity, entity_id, detail
		 FROM audit_events WHERE actor = $1 ORDER BY timestamp`, actor.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event    Event
			rawActor string
		)
		if err := rows.Scan(&event.Timestamp, &rawActor, &event.Action, &event.Entity, &event.EntityID, &event.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		actorID, err := id.ParseUserID(rawActor)
		if err != nil {
			return nil, fmt.Errorf("audit actor id: %w", err)
		}
		event.Actor = actorID
		out = append(out, event)
	}
	return out, rows.Err()
}
