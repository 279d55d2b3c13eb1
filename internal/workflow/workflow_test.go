package workflow_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/athenura/internhub-backend/internal/db"
	"github.com/athenura/internhub-backend/internal/email"
	"github.com/athenura/internhub-backend/internal/render"
	"github.com/athenura/internhub-backend/internal/store"
	"github.com/athenura/internhub-backend/internal/workflow"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubQuerier satisfies db.Querier with in-memory submissions and interns
// maps.
type stubQuerier struct {
	db.Querier // embedded to panic on unimplemented methods
	submissions map[uuid.UUID]db.Submission
	interns     map[string]db.Intern // keyed by unique_id
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{
		submissions: make(map[uuid.UUID]db.Submission),
		interns:     make(map[string]db.Intern),
	}
}

func (q *stubQuerier) GetSubmissionByID(_ context.Context, id uuid.UUID) (db.Submission, error) {
	s, ok := q.submissions[id]
	if !ok {
		return db.Submission{}, sql.ErrNoRows
	}
	return s, nil
}

func (q *stubQuerier) GetInternByUniqueID(_ context.Context, uniqueID string) (db.Intern, error) {
	i, ok := q.interns[uniqueID]
	if !ok {
		return db.Intern{}, sql.ErrNoRows
	}
	return i, nil
}

// stubPersister mutates the shared submissions map so the workflow's final
// re-read observes the persisted state.
type stubPersister struct {
	q *stubQuerier

	issueErr   error
	issuedRow  db.Submission // returned alongside ErrCertificateAlreadyIssued
	rejectErr  error
	pendingErr error

	issueCalls   int
	rejectCalls  int
	pendingCalls int
}

func (p *stubPersister) IssueCertificate(_ context.Context, params store.IssueCertificateParams) (db.Submission, error) {
	p.issueCalls++
	if errors.Is(p.issueErr, store.ErrCertificateAlreadyIssued) {
		p.q.submissions[params.SubmissionID] = p.issuedRow
		return p.issuedRow, p.issueErr
	}
	if p.issueErr != nil {
		return db.Submission{}, p.issueErr
	}
	s := p.q.submissions[params.SubmissionID]
	s.CertificateStatus = db.CertificateStatusIssued
	s.CertificateNumber = sql.NullString{String: params.CertificateNumber, Valid: true}
	s.CertificateIssuedAt = sql.NullTime{Time: params.IssuedAt, Valid: true}
	p.q.submissions[params.SubmissionID] = s
	if i, ok := p.q.interns[s.UniqueID]; ok {
		i.CertificateStatus = db.CertificateStatusIssued
		i.CertificateNumber = s.CertificateNumber
		p.q.interns[s.UniqueID] = i
	}
	return s, nil
}

func (p *stubPersister) RejectCertificate(_ context.Context, params store.RejectCertificateParams) (db.Submission, error) {
	p.rejectCalls++
	if p.rejectErr != nil {
		return db.Submission{}, p.rejectErr
	}
	s := p.q.submissions[params.SubmissionID]
	s.CertificateStatus = db.CertificateStatusRejected
	s.RejectionReason = params.Reason
	s.RejectedAt = sql.NullTime{Time: params.RejectedAt, Valid: true}
	p.q.submissions[params.SubmissionID] = s
	return s, nil
}

func (p *stubPersister) MarkPending(_ context.Context, id uuid.UUID) (db.Submission, error) {
	p.pendingCalls++
	if p.pendingErr != nil {
		return db.Submission{}, p.pendingErr
	}
	s := p.q.submissions[id]
	s.CertificateStatus = db.CertificateStatusPending
	p.q.submissions[id] = s
	return s, nil
}

type stubAllocator struct {
	number string
	err    error
	calls  int
}

func (a *stubAllocator) Allocate(_ context.Context) (string, error) {
	a.calls++
	return a.number, a.err
}

type stubRenderer struct {
	document []byte
	err      error
	inputs   []render.Input
}

func (r *stubRenderer) Render(in render.Input) ([]byte, error) {
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return nil, r.err
	}
	return r.document, nil
}

type stubMailer struct {
	issued   []email.IssuedParams
	rejected []email.RejectedParams
	pending  []email.PendingParams
	err      error
}

func (m *stubMailer) SendIssued(_ context.Context, p email.IssuedParams) error {
	m.issued = append(m.issued, p)
	return m.err
}

func (m *stubMailer) SendRejected(_ context.Context, p email.RejectedParams) error {
	m.rejected = append(m.rejected, p)
	return m.err
}

func (m *stubMailer) SendPending(_ context.Context, p email.PendingParams) error {
	m.pending = append(m.pending, p)
	return m.err
}

type stubEnqueuer struct {
	issued   []email.IssuedParams
	rejected []email.RejectedParams
	pending  []email.PendingParams
}

func (e *stubEnqueuer) EnqueueIssued(p email.IssuedParams)     { e.issued = append(e.issued, p) }
func (e *stubEnqueuer) EnqueueRejected(p email.RejectedParams) { e.rejected = append(e.rejected, p) }
func (e *stubEnqueuer) EnqueuePending(p email.PendingParams)   { e.pending = append(e.pending, p) }

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	q         *stubQuerier
	persister *stubPersister
	alloc     *stubAllocator
	renderer  *stubRenderer
	mailer    *stubMailer
	enqueuer  *stubEnqueuer
	wf        *workflow.Workflow
}

func newTestWorkflow(t *testing.T) *testDeps {
	t.Helper()
	q := newStubQuerier()
	persister := &stubPersister{q: q}
	alloc := &stubAllocator{number: "100234567"}
	renderer := &stubRenderer{document: []byte("%PDF-1.4 test")}
	mailer := &stubMailer{}
	enqueuer := &stubEnqueuer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testDeps{
		q:         q,
		persister: persister,
		alloc:     alloc,
		renderer:  renderer,
		mailer:    mailer,
		enqueuer:  enqueuer,
		wf:        workflow.New(q, persister, alloc, renderer, mailer, enqueuer, logger),
	}
}

func seedSubmission(d *testDeps, status db.CertificateStatus) db.Submission {
	s := db.Submission{
		ID:       uuid.New(),
		UniqueID: "ATH-2026-0042",
		InternDetails: db.InternDetails{
			FullName: "Asha Patel",
			Email:    "asha@example.com",
			Mobile:   "9876543210",
		},
		Domain:            "Web Development",
		Duration:          "3 months",
		StartMonth:        "January 2026",
		EndMonth:          "April 2026",
		FeedbackText:      "Great experience.",
		CertificateStatus: status,
		SubmittedAt:       time.Now(),
	}
	d.q.submissions[s.ID] = s
	return s
}

// ─── ISSUE ───────────────────────────────────────────────────────────────────

func TestTransition_IssueAllocatesRendersPersistsNotifies(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if d.alloc.calls != 1 {
		t.Errorf("expected 1 allocation, got %d", d.alloc.calls)
	}
	if len(d.renderer.inputs) != 1 {
		t.Fatalf("expected 1 render, got %d", len(d.renderer.inputs))
	}
	if d.renderer.inputs[0].CertificateNumber != "100234567" {
		t.Errorf("render input number: got %q", d.renderer.inputs[0].CertificateNumber)
	}
	if d.persister.issueCalls != 1 {
		t.Errorf("expected 1 persist, got %d", d.persister.issueCalls)
	}

	if snap.CertificateStatus != db.CertificateStatusIssued {
		t.Errorf("snapshot status: got %q", snap.CertificateStatus)
	}
	if snap.CertificateNumber != "100234567" {
		t.Errorf("snapshot number: got %q", snap.CertificateNumber)
	}

	if len(d.mailer.issued) != 1 {
		t.Fatalf("expected 1 issued email, got %d", len(d.mailer.issued))
	}
	sent := d.mailer.issued[0]
	if sent.To != "asha@example.com" {
		t.Errorf("email to: got %q", sent.To)
	}
	if string(sent.Certificate) != "%PDF-1.4 test" {
		t.Error("email should carry the rendered document")
	}
	if sent.Details.CertificateNumber != "100234567" {
		t.Errorf("email certificate number: got %q", sent.Details.CertificateNumber)
	}
}

func TestTransition_IssueReusesExistingNumber(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusRejected)
	sub.CertificateNumber = sql.NullString{String: "100999888", Valid: true}
	d.q.submissions[sub.ID] = sub

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if d.alloc.calls != 0 {
		t.Errorf("allocator should not run when a number already exists, got %d calls", d.alloc.calls)
	}
	if snap.CertificateNumber != "100999888" {
		t.Errorf("snapshot number: got %q, want the pre-existing one", snap.CertificateNumber)
	}
}

func TestTransition_IssueReusesInternNumber(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)
	d.q.interns[sub.UniqueID] = db.Intern{
		ID:                uuid.New(),
		UniqueID:          sub.UniqueID,
		FullName:          sub.InternDetails.FullName,
		CertificateNumber: sql.NullString{String: "100777333", Valid: true},
		CertificateStatus: db.CertificateStatusIssued,
	}

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if d.alloc.calls != 0 {
		t.Errorf("allocator should not run when the person already holds a number, got %d calls", d.alloc.calls)
	}
	if snap.CertificateNumber != "100777333" {
		t.Errorf("snapshot number: got %q, want the person's existing number", snap.CertificateNumber)
	}
}

func TestTransition_IssueSecondSubmissionKeepsPersonNumber(t *testing.T) {
	// A person re-submits the feedback form after their first submission was
	// issued; the second issuance must carry the same number, never mint a
	// fresh one that would overwrite the intern record.
	d := newTestWorkflow(t)
	first := seedSubmission(d, db.CertificateStatusNotIssued)
	second := seedSubmission(d, db.CertificateStatusNotIssued)
	d.q.interns[first.UniqueID] = db.Intern{
		ID:       uuid.New(),
		UniqueID: first.UniqueID,
		FullName: first.InternDetails.FullName,
	}

	if _, err := d.wf.Transition(context.Background(), first.ID, db.CertificateStatusIssued, ""); err != nil {
		t.Fatalf("first issuance: %v", err)
	}
	if d.alloc.calls != 1 {
		t.Fatalf("expected 1 allocation for the first issuance, got %d", d.alloc.calls)
	}

	snap, err := d.wf.Transition(context.Background(), second.ID, db.CertificateStatusIssued, "")
	if err != nil {
		t.Fatalf("second issuance: %v", err)
	}

	if d.alloc.calls != 1 {
		t.Errorf("second issuance must not allocate, got %d total calls", d.alloc.calls)
	}
	if snap.CertificateNumber != "100234567" {
		t.Errorf("second submission number: got %q, want the first issuance's", snap.CertificateNumber)
	}
	if got := d.q.interns[first.UniqueID].CertificateNumber.String; got != "100234567" {
		t.Errorf("intern record number: got %q, want unchanged", got)
	}
}

func TestTransition_RenderFailureAbortsBeforePersist(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)
	d.renderer.err = render.ErrInputInvalid

	_, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if !errors.Is(err, render.ErrInputInvalid) {
		t.Fatalf("expected render error to surface, got %v", err)
	}

	if d.persister.issueCalls != 0 {
		t.Error("persist should not run after a render failure")
	}
	if len(d.mailer.issued) != 0 {
		t.Error("no email should be sent after a render failure")
	}
	if got := d.q.submissions[sub.ID].CertificateStatus; got != db.CertificateStatusNotIssued {
		t.Errorf("status should be unchanged, got %q", got)
	}
}

func TestTransition_AllocationFailureAborts(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)
	d.alloc.err = errors.New("no free certificate number within attempt budget")

	_, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(d.renderer.inputs) != 0 {
		t.Error("render should not run after an allocation failure")
	}
	if d.persister.issueCalls != 0 {
		t.Error("persist should not run after an allocation failure")
	}
}

func TestTransition_ConcurrentIssueLoserReturnsWinnerState(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)

	winner := sub
	winner.CertificateStatus = db.CertificateStatusIssued
	winner.CertificateNumber = sql.NullString{String: "100111222", Valid: true}
	d.persister.issueErr = store.ErrCertificateAlreadyIssued
	d.persister.issuedRow = winner

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err != nil {
		t.Fatalf("losing a concurrent issue should not error: %v", err)
	}

	if snap.CertificateNumber != "100111222" {
		t.Errorf("snapshot should carry the winner's number, got %q", snap.CertificateNumber)
	}
	if snap.CertificateStatus != db.CertificateStatusIssued {
		t.Errorf("snapshot status: got %q", snap.CertificateStatus)
	}
	if len(d.mailer.issued) != 0 {
		t.Error("the loser must not send a duplicate notification")
	}
	if len(d.enqueuer.issued) != 0 {
		t.Error("the loser must not enqueue a redelivery")
	}
}

// ─── REJECT ──────────────────────────────────────────────────────────────────

func TestTransition_RejectPersistsReasonVerbatim(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusPending)

	reason := "Feedback video missing; please re-upload."
	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusRejected, reason)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if snap.CertificateStatus != db.CertificateStatusRejected {
		t.Errorf("snapshot status: got %q", snap.CertificateStatus)
	}
	if snap.RejectionReason != reason {
		t.Errorf("rejection reason: got %q, want verbatim %q", snap.RejectionReason, reason)
	}
	if len(d.mailer.rejected) != 1 {
		t.Fatalf("expected 1 rejection email, got %d", len(d.mailer.rejected))
	}
	if d.mailer.rejected[0].Reason != reason {
		t.Errorf("email reason: got %q", d.mailer.rejected[0].Reason)
	}
}

func TestTransition_RejectKeepsCertificateNumber(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusIssued)
	sub.CertificateNumber = sql.NullString{String: "100234567", Valid: true}
	d.q.submissions[sub.ID] = sub

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusRejected, "revoked pending review")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if snap.CertificateStatus != db.CertificateStatusRejected {
		t.Errorf("snapshot status: got %q", snap.CertificateStatus)
	}
	if snap.CertificateNumber != "100234567" {
		t.Errorf("certificate number should survive rejection, got %q", snap.CertificateNumber)
	}
}

// ─── PENDING ─────────────────────────────────────────────────────────────────

func TestTransition_PendingPersistsAndNotifies(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusPending, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if snap.CertificateStatus != db.CertificateStatusPending {
		t.Errorf("snapshot status: got %q", snap.CertificateStatus)
	}
	if d.persister.pendingCalls != 1 {
		t.Errorf("expected 1 pending persist, got %d", d.persister.pendingCalls)
	}
	if len(d.mailer.pending) != 1 {
		t.Errorf("expected 1 pending email, got %d", len(d.mailer.pending))
	}
}

// ─── GENERAL ─────────────────────────────────────────────────────────────────

func TestTransition_SameStatusIsNoOp(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusIssued)
	sub.CertificateNumber = sql.NullString{String: "100234567", Valid: true}
	d.q.submissions[sub.ID] = sub

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}

	if d.persister.issueCalls != 0 || d.alloc.calls != 0 || len(d.renderer.inputs) != 0 {
		t.Error("no side effect should run for a same-status request")
	}
	if len(d.mailer.issued) != 0 {
		t.Error("no email should be sent for a same-status request")
	}
	if snap.CertificateNumber != "100234567" {
		t.Errorf("no-op should still return the current snapshot, got number %q", snap.CertificateNumber)
	}
}

func TestTransition_UnknownSubmissionReturnsNotFound(t *testing.T) {
	d := newTestWorkflow(t)

	_, err := d.wf.Transition(context.Background(), uuid.New(), db.CertificateStatusIssued, "")
	if !errors.Is(err, workflow.ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestTransition_InvalidTargetReturnsError(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusPending)

	_, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatus("archived"), "")
	if !errors.Is(err, workflow.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestTransition_NotificationFailureIsSwallowedAndRequeued(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)
	d.mailer.err = errors.New("brevo 503")

	snap, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err != nil {
		t.Fatalf("a failed notification must not fail the transition: %v", err)
	}

	if snap.CertificateStatus != db.CertificateStatusIssued {
		t.Errorf("status should be persisted regardless, got %q", snap.CertificateStatus)
	}
	if len(d.enqueuer.issued) != 1 {
		t.Fatalf("expected 1 redelivery enqueue, got %d", len(d.enqueuer.issued))
	}
	if d.enqueuer.issued[0].To != "asha@example.com" {
		t.Errorf("enqueued recipient: got %q", d.enqueuer.issued[0].To)
	}
}

func TestTransition_PersistFailureSurfacesError(t *testing.T) {
	d := newTestWorkflow(t)
	sub := seedSubmission(d, db.CertificateStatusNotIssued)
	d.persister.issueErr = errors.New("serialization failure")

	_, err := d.wf.Transition(context.Background(), sub.ID, db.CertificateStatusIssued, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(d.mailer.issued) != 0 {
		t.Error("no email should be sent when persistence fails")
	}
}
