// Package dbx holds the small sqlx-based primitives shared by the Postgres
// ItemStore and StatsStore backends: the
// Querier/Transactor interfaces that let store methods run standalone or
// inside a caller-supplied transaction, ground: store/interfaces.go.
package dbx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, letting store methods
// accept either without knowing which.
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Transactor starts a new transaction; only the *sqlx.DB-backed store
// implements it meaningfully.
type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// WithTx runs fn inside a new transaction, committing on success and
// rolling back on any error or panic.
func WithTx(ctx context.Context, tx Transactor, fn func(q Querier) error) (err error) {
	sqlTx, err := tx.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		err = sqlTx.Commit()
	}()
	err = fn(sqlTx)
	return err
}
