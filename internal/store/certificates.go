package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/athenura/internhub-backend/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// IssueCertificateParams is everything the workflow hands to the store once a
// certificate number has been allocated and the document rendered.
type IssueCertificateParams struct {
	SubmissionID      uuid.UUID
	CertificateNumber string
	IssuedAt          time.Time
}

// RejectCertificateParams carries a rejection outcome. Reason is optional —
// when invalid, the previously stored reason (if any) is left in place.
type RejectCertificateParams struct {
	SubmissionID uuid.UUID
	Reason       sql.NullString
	RejectedAt   time.Time
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrCertificateAlreadyIssued is returned by IssueCertificate when the
// submission already holds an issued certificate with a number. The workflow
// treats this as idempotent success: the returned row carries the winning
// certificate number, and no second number is ever minted for the submission.
var ErrCertificateAlreadyIssued = errors.New("store: certificate already issued for submission")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// IssueCertificate atomically:
//
//  1. Re-reads the submission inside the transaction (duplicate-issue guard).
//  2. Writes certificate_number, certificate_issued_at, and status=issued
//     onto the submission, guarded so an already-issued row is never
//     overwritten.
//  3. Mirrors the outcome onto the intern row matching unique_id. A missing
//     intern row is tolerated: submissions can outlive their person record.
//
// Race scenario without the guard:
//
//  1. Two reviewers click "issue" at the same time.
//  2. Both requests pass the "not already issued" check, allocate distinct
//     numbers, and render distinct certificates.
//  3. Both write — the second silently overwrites the first number, and two
//     different certificates for the same internship are now in the wild.
//
// With serializable isolation the second transaction sees the first commit
// and returns ErrCertificateAlreadyIssued together with the winning row. The
// caller returns the winner's number and skips its own notification.
func (s *Store) IssueCertificate(ctx context.Context, p IssueCertificateParams) (db.Submission, error) {
	var submission db.Submission

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		existing, err := q.GetSubmissionByID(ctx, p.SubmissionID)
		if err != nil {
			return fmt.Errorf("IssueCertificate: get submission: %w", err)
		}

		if existing.CertificateStatus == db.CertificateStatusIssued &&
			existing.CertificateNumber.Valid && existing.CertificateNumber.String != "" {
			submission = existing
			return ErrCertificateAlreadyIssued
		}

		updated, err := q.IssueSubmission(ctx, db.IssueSubmissionParams{
			ID:                p.SubmissionID,
			CertificateNumber: p.CertificateNumber,
			IssuedAt:          p.IssuedAt,
		})
		if errors.Is(err, sql.ErrNoRows) {
			// The SQL-level guard fired between our read and write. Surface
			// the same sentinel with the committed row.
			submission, err = q.GetSubmissionByID(ctx, p.SubmissionID)
			if err != nil {
				return fmt.Errorf("IssueCertificate: re-read after guard: %w", err)
			}
			return ErrCertificateAlreadyIssued
		}
		if err != nil {
			return fmt.Errorf("IssueCertificate: issue submission: %w", err)
		}

		if _, err := q.MirrorInternIssued(ctx, db.MirrorInternIssuedParams{
			UniqueID:          updated.UniqueID,
			CertificateNumber: p.CertificateNumber,
			IssuedAt:          p.IssuedAt,
		}); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("IssueCertificate: mirror intern: %w", err)
		}

		submission = updated
		return nil
	})

	// Unwrap the sentinel so callers can check with errors.Is without needing
	// to look inside a wrapped chain.
	if errors.Is(err, ErrCertificateAlreadyIssued) {
		return submission, ErrCertificateAlreadyIssued
	}
	if err != nil {
		return db.Submission{}, err
	}

	return submission, nil
}

// RejectCertificate atomically sets the submission to rejected and mirrors
// the status, reason, and timestamp onto the intern row when one exists. The
// certificate number, if one was issued earlier, is deliberately retained.
func (s *Store) RejectCertificate(ctx context.Context, p RejectCertificateParams) (db.Submission, error) {
	var submission db.Submission

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		rejectedAt := sql.NullTime{Time: p.RejectedAt, Valid: true}

		updated, err := q.SetSubmissionStatus(ctx, db.SetSubmissionStatusParams{
			ID:              p.SubmissionID,
			Status:          db.CertificateStatusRejected,
			RejectionReason: p.Reason,
			RejectedAt:      rejectedAt,
		})
		if err != nil {
			return fmt.Errorf("RejectCertificate: set submission status: %w", err)
		}

		if _, err := q.MirrorInternStatus(ctx, db.MirrorInternStatusParams{
			UniqueID:        updated.UniqueID,
			Status:          db.CertificateStatusRejected,
			RejectionReason: p.Reason,
			RejectedAt:      rejectedAt,
		}); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("RejectCertificate: mirror intern: %w", err)
		}

		submission = updated
		return nil
	})

	if err != nil {
		return db.Submission{}, err
	}
	return submission, nil
}

// MarkPending atomically sets the submission to pending and mirrors the
// status onto the intern row when one exists.
func (s *Store) MarkPending(ctx context.Context, submissionID uuid.UUID) (db.Submission, error) {
	var submission db.Submission

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		updated, err := q.SetSubmissionStatus(ctx, db.SetSubmissionStatusParams{
			ID:     submissionID,
			Status: db.CertificateStatusPending,
		})
		if err != nil {
			return fmt.Errorf("MarkPending: set submission status: %w", err)
		}

		if _, err := q.MirrorInternStatus(ctx, db.MirrorInternStatusParams{
			UniqueID: updated.UniqueID,
			Status:   db.CertificateStatusPending,
		}); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("MarkPending: mirror intern: %w", err)
		}

		submission = updated
		return nil
	})

	if err != nil {
		return db.Submission{}, err
	}
	return submission, nil
}
