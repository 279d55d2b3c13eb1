package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const submissionColumns = `id, unique_id, intern_details, domain, duration,
	start_month, end_month, feedback_text, media, certificate_number,
	certificate_status, rejection_reason, certificate_issued_at, rejected_at,
	submitted_at`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var (
		s      Submission
		status string
	)
	err := row.Scan(
		&s.ID,
		&s.UniqueID,
		&s.InternDetails,
		&s.Domain,
		&s.Duration,
		&s.StartMonth,
		&s.EndMonth,
		&s.FeedbackText,
		&s.Media,
		&s.CertificateNumber,
		&status,
		&s.RejectionReason,
		&s.CertificateIssuedAt,
		&s.RejectedAt,
		&s.SubmittedAt,
	)
	if err != nil {
		return Submission{}, err
	}
	s.CertificateStatus, err = ParseCertificateStatus(status)
	if err != nil {
		return Submission{}, err
	}
	return s, nil
}

// CreateSubmissionParams carries the fields written by the feedback intake
// flow. Certificate fields start at their defaults.
type CreateSubmissionParams struct {
	UniqueID      string
	InternDetails InternDetails
	Domain        string
	Duration      string
	StartMonth    string
	EndMonth      string
	FeedbackText  string
	Media         pqtype.NullRawMessage
}

func (q *Queries) CreateSubmission(ctx context.Context, p CreateSubmissionParams) (Submission, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO submissions (unique_id, intern_details, domain, duration,
			start_month, end_month, feedback_text, media)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+submissionColumns,
		p.UniqueID, p.InternDetails, p.Domain, p.Duration,
		p.StartMonth, p.EndMonth, p.FeedbackText, p.Media,
	)
	return scanSubmission(row)
}

func (q *Queries) GetSubmissionByID(ctx context.Context, id uuid.UUID) (Submission, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// ListSubmissions returns every submission, newest first, for the review
// dashboard.
func (q *Queries) ListSubmissions(ctx context.Context) ([]Submission, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetSubmissionStatusParams updates the workflow status. RejectionReason and
// RejectedAt only overwrite when valid — a pending transition does not erase
// an earlier rejection reason, matching the legacy behaviour.
type SetSubmissionStatusParams struct {
	ID              uuid.UUID
	Status          CertificateStatus
	RejectionReason sql.NullString
	RejectedAt      sql.NullTime
}

func (q *Queries) SetSubmissionStatus(ctx context.Context, p SetSubmissionStatusParams) (Submission, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE submissions
		SET certificate_status = $2,
		    rejection_reason   = COALESCE($3, rejection_reason),
		    rejected_at        = COALESCE($4, rejected_at)
		WHERE id = $1
		RETURNING `+submissionColumns,
		p.ID, string(p.Status), p.RejectionReason, p.RejectedAt,
	)
	return scanSubmission(row)
}

// IssueSubmissionParams writes the issuance outcome onto the submission.
type IssueSubmissionParams struct {
	ID                uuid.UUID
	CertificateNumber string
	IssuedAt          time.Time
}

// IssueSubmission flips the submission to issued and records the certificate
// number and timestamp. The WHERE guard makes the write first-writer-wins:
// a row already in issued state with a number is left untouched and
// sql.ErrNoRows is returned.
func (q *Queries) IssueSubmission(ctx context.Context, p IssueSubmissionParams) (Submission, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE submissions
		SET certificate_status    = 'issued',
		    certificate_number    = $2,
		    certificate_issued_at = $3
		WHERE id = $1
		  AND NOT (certificate_status = 'issued' AND certificate_number IS NOT NULL)
		RETURNING `+submissionColumns,
		p.ID, p.CertificateNumber, p.IssuedAt,
	)
	return scanSubmission(row)
}
