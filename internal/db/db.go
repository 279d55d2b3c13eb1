// Package db is the data-access layer: row types, the Querier interface, and
// hand-written SQL. Handlers and the workflow depend on Querier so tests can
// substitute an in-memory stub; the store layer runs the multi-statement
// writes through Queries.WithTx.
package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every query method works
// inside and outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries is the concrete Querier backed by a DBTX.
type Queries struct {
	db DBTX
}

// New returns a Queries bound to the given pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries scoped to the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Querier is the full query surface. Tests embed it in a stub struct so
// unimplemented methods panic loudly.
type Querier interface {
	// Submissions.
	CreateSubmission(ctx context.Context, p CreateSubmissionParams) (Submission, error)
	GetSubmissionByID(ctx context.Context, id uuid.UUID) (Submission, error)
	ListSubmissions(ctx context.Context) ([]Submission, error)
	DeleteSubmission(ctx context.Context, id uuid.UUID) error
	SetSubmissionStatus(ctx context.Context, p SetSubmissionStatusParams) (Submission, error)
	IssueSubmission(ctx context.Context, p IssueSubmissionParams) (Submission, error)

	// Interns.
	CreateIntern(ctx context.Context, p CreateInternParams) (Intern, error)
	GetInternByUniqueID(ctx context.Context, uniqueID string) (Intern, error)
	GetInternByCertificateNumber(ctx context.Context, number string) (Intern, error)
	MirrorInternIssued(ctx context.Context, p MirrorInternIssuedParams) (Intern, error)
	MirrorInternStatus(ctx context.Context, p MirrorInternStatusParams) (Intern, error)
}

var _ Querier = (*Queries)(nil)
