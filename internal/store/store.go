// Package store groups the multi-record write operations that must execute
// atomically: every certificate status change touches a submission row and,
// when one exists, the matching intern row.
//
// Single-query reads (GetSubmissionByID, GetInternByUniqueID, etc.) should be
// called directly on db.Querier in handlers — there is no value in proxying
// them through this package.
//
// Dependency rule: store imports db only. It never imports api, workflow,
// certno, render, or email.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/athenura/internhub-backend/internal/db"
)

// Store holds a *sql.DB for starting transactions and a *db.Queries for
// executing queries outside of transactions.
type Store struct {
	// pool is the raw connection pool, used only to begin transactions.
	pool *sql.DB

	// q is used for non-transactional calls. Handlers that hold a *Store can
	// also access it directly via store.Q() for single-query reads.
	q *db.Queries
}

// New creates a Store from a live connection pool. The pool must already be
// open and verified (e.g. via PingContext) before calling New.
func New(pool *sql.DB, q *db.Queries) *Store {
	return &Store{pool: pool, q: q}
}

// Q exposes the underlying Queries so callers can run single-query reads
// without going through a store method.
func (s *Store) Q() db.Querier {
	return s.q
}

// txQuerier is a function that receives a transaction-scoped Querier and
// returns an error. Returning a non-nil error causes withTx to roll back.
type txQuerier func(ctx context.Context, q db.Querier) error

// withTx runs fn inside a serializable transaction, retrying a bounded number
// of times when Postgres aborts a transaction with a serialization failure.
// On the retry the losing transaction re-reads committed state, so the
// duplicate-issue guard fires and the caller receives the sentinel instead of
// a raw 40001.
//
// Serializable isolation is used because every write here follows a
// read-then-write pattern (checking current status before updating). Two
// concurrent transitions on the same submission cannot both commit.
func (s *Store) withTx(ctx context.Context, fn txQuerier) error {
	const maxAttempts = 3

	var err error
	for attempt := 1; ; attempt++ {
		err = s.runTx(ctx, fn)
		if !isSerializationFailure(err) || attempt == maxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
}

// isSerializationFailure reports whether err is a Postgres serialization
// failure (40001) or deadlock (40P01), both safe to retry.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// runTx begins a transaction, passes a Querier scoped to that transaction to
// fn, and commits on success or rolls back on any error (including panics).
func (s *Store) runTx(ctx context.Context, fn txQuerier) error {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	// Roll back on panic so the connection is never left in a broken state.
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // re-panic after rollback
		}
	}()

	if err := fn(ctx, s.q.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: fn error: %w; rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}
