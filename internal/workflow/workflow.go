// Package workflow implements the certificate status transition as a linear
// pipeline of result-returning stages. Each stage declares its failure mode
// up front:
//
//	allocate  → abort (AllocationExhausted)
//	render    → abort, before any issuance field is persisted
//	persist   → abort (or idempotent success on the duplicate-issue guard)
//	notify    → never aborts; logged and handed to the redelivery queue
//
// The response snapshot is always re-read from the database so the caller
// sees the true persisted state even when a concurrent transition won.
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/athenura/internhub-backend/internal/db"
	"github.com/athenura/internhub-backend/internal/email"
	"github.com/athenura/internhub-backend/internal/render"
	"github.com/athenura/internhub-backend/internal/store"
	"github.com/athenura/internhub-backend/internal/worker"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrSubmissionNotFound means the submission id has no record.
	ErrSubmissionNotFound = errors.New("workflow: submission not found")

	// ErrInvalidTarget means the requested status is not a certificate
	// workflow state reachable by a reviewer action.
	ErrInvalidTarget = errors.New("workflow: invalid target status")
)

// ─── COLLABORATOR INTERFACES ─────────────────────────────────────────────────

// Allocator produces certificate numbers. Satisfied by *certno.Allocator.
type Allocator interface {
	Allocate(ctx context.Context) (string, error)
}

// Renderer produces the certificate document. Satisfied by *render.Renderer.
type Renderer interface {
	Render(in render.Input) ([]byte, error)
}

// Persister is the subset of *store.Store the workflow writes through.
type Persister interface {
	IssueCertificate(ctx context.Context, p store.IssueCertificateParams) (db.Submission, error)
	RejectCertificate(ctx context.Context, p store.RejectCertificateParams) (db.Submission, error)
	MarkPending(ctx context.Context, submissionID uuid.UUID) (db.Submission, error)
}

// ─── WORKFLOW ────────────────────────────────────────────────────────────────

// Workflow orchestrates allocation, rendering, persistence, and notification
// for a single status-change request.
type Workflow struct {
	q          db.Querier
	persister  Persister
	alloc      Allocator
	renderer   Renderer
	mailer     email.Sender
	redelivery worker.Enqueuer
	logger     *slog.Logger

	// Overridable for deterministic tests.
	now func() time.Time
}

// New constructs a Workflow with all required dependencies.
func New(
	q db.Querier,
	persister Persister,
	alloc Allocator,
	renderer Renderer,
	mailer email.Sender,
	redelivery worker.Enqueuer,
	logger *slog.Logger,
) *Workflow {
	return &Workflow{
		q:          q,
		persister:  persister,
		alloc:      alloc,
		renderer:   renderer,
		mailer:     mailer,
		redelivery: redelivery,
		logger:     logger,
		now:        time.Now,
	}
}

// InternshipInfo is the denormalised internship slice of a snapshot.
type InternshipInfo struct {
	Domain            string `json:"domain"`
	Duration          string `json:"duration"`
	StartMonth        string `json:"startMonth"`
	EndMonth          string `json:"endMonth"`
	CertificateNumber string `json:"certificateNumber,omitempty"`
}

// Snapshot is the persisted state returned to the caller after a transition.
type Snapshot struct {
	ID                uuid.UUID            `json:"id"`
	UniqueID          string               `json:"uniqueId"`
	CertificateStatus db.CertificateStatus `json:"certificateStatus"`
	CertificateNumber string               `json:"certificateNumber,omitempty"`
	InternDetails     db.InternDetails     `json:"internDetails"`
	InternshipInfo    InternshipInfo       `json:"internshipInfo"`
	RejectionReason   string               `json:"rejectionReason,omitempty"`
}

func snapshotOf(s db.Submission) Snapshot {
	return Snapshot{
		ID:                s.ID,
		UniqueID:          s.UniqueID,
		CertificateStatus: s.CertificateStatus,
		CertificateNumber: s.CertificateNumber.String,
		InternDetails:     s.InternDetails,
		InternshipInfo: InternshipInfo{
			Domain:            s.Domain,
			Duration:          s.Duration,
			StartMonth:        s.StartMonth,
			EndMonth:          s.EndMonth,
			CertificateNumber: s.CertificateNumber.String,
		},
		RejectionReason: s.RejectionReason.String,
	}
}

// Transition applies the requested status change to the submission and runs
// the side effects for the target state. Requesting the submission's current
// status is a no-op that still returns the current snapshot.
func (w *Workflow) Transition(ctx context.Context, submissionID uuid.UUID, target db.CertificateStatus, reason string) (Snapshot, error) {
	sub, err := w.q.GetSubmissionByID(ctx, submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrSubmissionNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("workflow: load submission: %w", err)
	}

	if sub.CertificateStatus == target {
		return snapshotOf(sub), nil
	}

	switch target {
	case db.CertificateStatusIssued:
		err = w.issue(ctx, sub)
	case db.CertificateStatusRejected:
		err = w.reject(ctx, sub, reason)
	case db.CertificateStatusPending:
		err = w.markPending(ctx, sub)
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	if err != nil {
		return Snapshot{}, err
	}

	// Re-read rather than trusting in-memory state: a concurrent transition
	// may have committed after ours.
	final, err := w.q.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("workflow: re-read submission: %w", err)
	}
	return snapshotOf(final), nil
}

// issue runs allocate → render → persist → notify.
func (w *Workflow) issue(ctx context.Context, sub db.Submission) error {
	log := w.logger.With("submission_id", sub.ID)

	// A certificate number never changes once assigned to a person. Reuse the
	// number already on the submission (e.g. issued → rejected → issued), or
	// the one on the intern record when the person re-submitted and was issued
	// on an earlier submission. The allocator only runs for a first issuance.
	number := strings.TrimSpace(sub.CertificateNumber.String)
	if number == "" {
		intern, err := w.q.GetInternByUniqueID(ctx, sub.UniqueID)
		switch {
		case err == nil:
			number = strings.TrimSpace(intern.CertificateNumber.String)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("workflow: load intern record: %w", err)
		}
	}
	if number == "" {
		var err error
		number, err = w.alloc.Allocate(ctx)
		if err != nil {
			return fmt.Errorf("workflow: allocate certificate number: %w", err)
		}
	}

	input := render.Input{
		FullName:          sub.InternDetails.FullName,
		StartMonth:        sub.StartMonth,
		EndMonth:          sub.EndMonth,
		Domain:            sub.Domain,
		Duration:          sub.Duration,
		UniqueID:          sub.UniqueID,
		CertificateNumber: number,
	}

	document, err := w.renderer.Render(input)
	if err != nil {
		// Nothing has been persisted yet — the submission keeps its previous
		// status.
		return fmt.Errorf("workflow: render certificate: %w", err)
	}

	issued, err := w.persister.IssueCertificate(ctx, store.IssueCertificateParams{
		SubmissionID:      sub.ID,
		CertificateNumber: number,
		IssuedAt:          w.now(),
	})
	if errors.Is(err, store.ErrCertificateAlreadyIssued) {
		// A concurrent request won. Its number is the certificate of record
		// and it owns the notification; our rendered document is discarded.
		log.Info("issue lost to concurrent transition",
			"persisted_number", issued.CertificateNumber.String,
			"discarded_number", number,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("workflow: persist issuance: %w", err)
	}

	w.notify(ctx, log, "issued", func(ctx context.Context) error {
		return w.mailer.SendIssued(ctx, w.issuedParams(issued, document, number))
	}, func() {
		w.redelivery.EnqueueIssued(w.issuedParams(issued, document, number))
	})
	return nil
}

func (w *Workflow) issuedParams(sub db.Submission, document []byte, number string) email.IssuedParams {
	return email.IssuedParams{
		To:          sub.InternDetails.Email,
		InternName:  sub.InternDetails.FullName,
		Certificate: document,
		Details: email.CertificateDetails{
			CertificateNumber: number,
			UniqueID:          sub.UniqueID,
			Domain:            sub.Domain,
			Duration:          sub.Duration,
			StartMonth:        sub.StartMonth,
			EndMonth:          sub.EndMonth,
		},
	}
}

// reject persists the rejection, then notifies.
func (w *Workflow) reject(ctx context.Context, sub db.Submission, reason string) error {
	log := w.logger.With("submission_id", sub.ID)

	reason = strings.TrimSpace(reason)
	rejected, err := w.persister.RejectCertificate(ctx, store.RejectCertificateParams{
		SubmissionID: sub.ID,
		Reason:       sql.NullString{String: reason, Valid: reason != ""},
		RejectedAt:   w.now(),
	})
	if err != nil {
		return fmt.Errorf("workflow: persist rejection: %w", err)
	}

	p := email.RejectedParams{
		To:           rejected.InternDetails.Email,
		InternName:   rejected.InternDetails.FullName,
		SubmissionID: rejected.ID.String(),
		Reason:       reason,
	}
	w.notify(ctx, log, "rejected", func(ctx context.Context) error {
		return w.mailer.SendRejected(ctx, p)
	}, func() {
		w.redelivery.EnqueueRejected(p)
	})
	return nil
}

// markPending persists the pending state, then notifies.
func (w *Workflow) markPending(ctx context.Context, sub db.Submission) error {
	log := w.logger.With("submission_id", sub.ID)

	pending, err := w.persister.MarkPending(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("workflow: persist pending: %w", err)
	}

	p := email.PendingParams{
		To:           pending.InternDetails.Email,
		InternName:   pending.InternDetails.FullName,
		SubmissionID: pending.ID.String(),
	}
	w.notify(ctx, log, "pending", func(ctx context.Context) error {
		return w.mailer.SendPending(ctx, p)
	}, func() {
		w.redelivery.EnqueuePending(p)
	})
	return nil
}

// notify runs one synchronous send. A failure is logged and handed to the
// redelivery queue; it never reaches the caller — the persisted status is the
// authoritative outcome and email stays best-effort.
func (w *Workflow) notify(ctx context.Context, log *slog.Logger, kind string, send func(context.Context) error, requeue func()) {
	if err := send(ctx); err != nil {
		log.Error("notification failed", "kind", kind, "error", err)
		if w.redelivery != nil {
			requeue()
		}
	}
}
