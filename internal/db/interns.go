package db

import (
	"context"
	"database/sql"
	"time"
)

const internColumns = `id, unique_id, full_name, email, mobile, dob,
	certificate_number, certificate_status, certificate_issued_at,
	rejection_reason, rejected_at, created_at`

func scanIntern(row interface{ Scan(...any) error }) (Intern, error) {
	var (
		i      Intern
		status string
	)
	err := row.Scan(
		&i.ID,
		&i.UniqueID,
		&i.FullName,
		&i.Email,
		&i.Mobile,
		&i.Dob,
		&i.CertificateNumber,
		&status,
		&i.CertificateIssuedAt,
		&i.RejectionReason,
		&i.RejectedAt,
		&i.CreatedAt,
	)
	if err != nil {
		return Intern{}, err
	}
	i.CertificateStatus, err = ParseCertificateStatus(status)
	if err != nil {
		return Intern{}, err
	}
	return i, nil
}

type CreateInternParams struct {
	UniqueID string
	FullName string
	Email    string
	Mobile   string
	Dob      string
}

func (q *Queries) CreateIntern(ctx context.Context, p CreateInternParams) (Intern, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO interns (unique_id, full_name, email, mobile, dob)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+internColumns,
		p.UniqueID, p.FullName, p.Email, p.Mobile, p.Dob,
	)
	return scanIntern(row)
}

func (q *Queries) GetInternByUniqueID(ctx context.Context, uniqueID string) (Intern, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+internColumns+` FROM interns WHERE unique_id = $1`, uniqueID)
	return scanIntern(row)
}

// GetInternByCertificateNumber is the allocator's collision probe and the
// verification portal's lookup.
func (q *Queries) GetInternByCertificateNumber(ctx context.Context, number string) (Intern, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+internColumns+` FROM interns WHERE certificate_number = $1`, number)
	return scanIntern(row)
}

// MirrorInternIssuedParams propagates an issuance onto the canonical record.
type MirrorInternIssuedParams struct {
	UniqueID          string
	CertificateNumber string
	IssuedAt          time.Time
}

func (q *Queries) MirrorInternIssued(ctx context.Context, p MirrorInternIssuedParams) (Intern, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE interns
		SET certificate_number    = $2,
		    certificate_status    = 'issued',
		    certificate_issued_at = $3
		WHERE unique_id = $1
		RETURNING `+internColumns,
		p.UniqueID, p.CertificateNumber, p.IssuedAt,
	)
	return scanIntern(row)
}

// MirrorInternStatusParams propagates a rejected or pending outcome.
type MirrorInternStatusParams struct {
	UniqueID        string
	Status          CertificateStatus
	RejectionReason sql.NullString
	RejectedAt      sql.NullTime
}

func (q *Queries) MirrorInternStatus(ctx context.Context, p MirrorInternStatusParams) (Intern, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE interns
		SET certificate_status = $2,
		    rejection_reason   = COALESCE($3, rejection_reason),
		    rejected_at        = COALESCE($4, rejected_at)
		WHERE unique_id = $1
		RETURNING `+internColumns,
		p.UniqueID, string(p.Status), p.RejectionReason, p.RejectedAt,
	)
	return scanIntern(row)
}
