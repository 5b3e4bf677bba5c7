// Package postgres implements internal/entitystore.Store against PostgreSQL
// using squirrel for query building and sqlx for scanning (spec §3, C3).
package postgres

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
)

// Client is the PostgreSQL-backed entitystore.Store. tx is nil for a
// pool-backed Client; WithinTransaction returns a Client with tx set,
// scoping every method call on it to that one transaction.
type Client struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

var _ entitystore.Store = (*Client)(nil)

// Open connects to dsn and verifies it with a ping.
func Open(dsn string) (*Client, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, apperrors.NewTransient(err, "postgres: connect")
	}
	return &Client{db: db}, nil
}

// NewWithDB wraps an already-opened *sqlx.DB, used by tests that need a
// stub or a sqlmock-backed connection.
func NewWithDB(db *sqlx.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Client) CheckHealth(ctx context.Context) error {
	if c.db == nil {
		return apperrors.NewInternal(nil, "postgres: db has not been initialized")
	}
	if err := c.db.PingContext(ctx); err != nil {
		return apperrors.NewTransient(err, "postgres: ping")
	}
	return nil
}

// psql builds statements with $N placeholders, matching lib/pq.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (c *Client) requireDB() error {
	if c.db == nil {
		return apperrors.NewInternal(nil, "postgres: db has not been initialized")
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error including a panic. If c is already scoped to a
// transaction (c.tx != nil), fn runs against that same transaction
// instead of opening a nested one, so a method called from within
// WithinTransaction joins the caller's transaction rather than racing it.
func (c *Client) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	if c.tx != nil {
		return fn(c.tx)
	}
	if err := c.requireDB(); err != nil {
		return err
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.NewTransient(err, "postgres: begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// WithinTransaction runs fn against a Store scoped to one PostgreSQL
// transaction, committing if fn returns nil and rolling back otherwise.
// entitystore.Store methods called on fn's argument (directly, or
// indirectly through further WithinTransaction calls) all participate in
// the same transaction, satisfying the atomicity spec §4.3 and §4.7
// require of multi-row commits such as upload commit and the IFC entity
// graph insert.
func (c *Client) WithinTransaction(ctx context.Context, fn func(entitystore.Store) error) error {
	if c.tx != nil {
		return fn(c)
	}
	return c.withTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&Client{db: c.db, tx: tx})
	})
}

// exec/get/sel route a query through the active transaction when c is
// tx-scoped, or the connection pool otherwise, so every method in this
// package composes correctly under WithinTransaction.
func (c *Client) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Client) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if c.tx != nil {
		return c.tx.GetContext(ctx, dest, query, args...)
	}
	return c.db.GetContext(ctx, dest, query, args...)
}

func (c *Client) sel(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if c.tx != nil {
		return c.tx.SelectContext(ctx, dest, query, args...)
	}
	return c.db.SelectContext(ctx, dest, query, args...)
}

// mapNotFound converts sql.ErrNoRows into an apperrors.NotFound.
func mapNotFound(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFound(format, args...)
	}
	return apperrors.NewTransient(err, format, args...)
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), surfaced as AlreadyExists/Conflict by callers.
func isUniqueViolation(err error) bool {
	return err != nil && pqErrorCode(err) == "23505"
}

// requireRowsAffected returns NotFound when res reports zero rows changed,
// used after UPDATE/DELETE statements targeting a single row by id.
func requireRowsAffected(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewTransient(err, "postgres: rows affected")
	}
	if n == 0 {
		return apperrors.NewNotFound(format, args...)
	}
	return nil
}
