// Package tx carries a SQL transaction through context so the admission
// stores can join one unit of work. A stage close, an allocation pass or a
// transition batch opens the transaction through Runner; the stores pick
// it up with From and fall back to the plain handle otherwise.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx attaches a transaction to the context. A nil transaction leaves
// the context untouched.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From returns the transaction attached to the context, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}
