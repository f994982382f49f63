package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Runner executes a function inside a single atomic transaction. Every
// mutating engine operation (stage close/reopen, evaluation submission,
// allocator pass) goes through a Runner so either all of its writes commit
// or none do.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner opens a database/sql transaction and carries it in the context
// so Postgres stores pick it up via From.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested call: reuse the transaction already in flight.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MemoryRunner serializes transactional sections with a mutex. In-memory
// stores mutate under it, which gives the same all-or-nothing observability
// guarantee the SQL runner gives (callers never observe a half-applied
// operation), though it cannot undo writes made before a failure.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}
