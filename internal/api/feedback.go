package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/athenura/internhub-backend/internal/db"
	"github.com/athenura/internhub-backend/internal/render"
	"github.com/athenura/internhub-backend/internal/workflow"
)

// ─── GET /api/feedback ───────────────────────────────────────────────────────

type feedbackMedia struct {
	PhotoURL string `json:"photoUrl"`
	VideoURL string `json:"videoUrl"`
}

type feedbackListItem struct {
	ID             string                  `json:"id"`
	UniqueID       string                  `json:"uniqueId"`
	InternDetails  db.InternDetails        `json:"internDetails"`
	InternshipInfo workflow.InternshipInfo `json:"internshipInfo"`
	FeedbackText   string                  `json:"feedbackText"`
	Status         string                  `json:"certificateStatus"`
	Media          feedbackMedia           `json:"media"`
	SubmittedAt    time.Time               `json:"submittedAt"`
}

// handleListFeedback returns every submission, newest first, for the review
// dashboard. Missing fields fall back to "N/A" so old partially-filled rows
// still render.
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	subs, err := s.q.ListSubmissions(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list submissions: %w", err))
		return
	}

	items := make([]feedbackListItem, len(subs))
	for i, sub := range subs {
		var media feedbackMedia
		if sub.Media.Valid {
			_ = json.Unmarshal(sub.Media.RawMessage, &media)
		}

		feedbackText := sub.FeedbackText
		if feedbackText == "" {
			feedbackText = "No feedback provided"
		}

		items[i] = feedbackListItem{
			ID:       sub.ID.String(),
			UniqueID: sub.UniqueID,
			InternDetails: db.InternDetails{
				FullName: orNA(sub.InternDetails.FullName),
				Email:    orNA(sub.InternDetails.Email),
				Mobile:   orNA(sub.InternDetails.Mobile),
				Dob:      sub.InternDetails.Dob,
			},
			InternshipInfo: workflow.InternshipInfo{
				Domain:            orNA(sub.Domain),
				Duration:          orNA(sub.Duration),
				StartMonth:        orNA(sub.StartMonth),
				EndMonth:          orNA(sub.EndMonth),
				CertificateNumber: sub.CertificateNumber.String,
			},
			FeedbackText: feedbackText,
			Status:       string(sub.CertificateStatus),
			Media:        media,
			SubmittedAt:  sub.SubmittedAt,
		}
	}

	respond(w, http.StatusOK, items)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// ─── PATCH /api/feedback/:feedbackID/certificate-status ──────────────────────

type updateStatusRequest struct {
	CertificateStatus string `json:"certificateStatus" validate:"required,oneof=issued rejected pending"`
	RejectionReason   string `json:"rejectionReason" validate:"omitempty,max=2000"`
}

type updateStatusResponse struct {
	Success  bool              `json:"success"`
	Feedback workflow.Snapshot `json:"feedback"`
}

// handleUpdateCertificateStatus is the reviewer's transition action. The
// workflow owns all side effects; this handler only translates errors into
// status codes. Notification failures never surface here — the persisted
// status is the authoritative outcome.
func (s *Server) handleUpdateCertificateStatus(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uuid.Parse(chi.URLParam(r, "feedbackID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid feedback id")
		return
	}

	var req updateStatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	target, err := db.ParseCertificateStatus(req.CertificateStatus)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid certificate status")
		return
	}

	snapshot, err := s.workflow.Transition(r.Context(), submissionID, target, req.RejectionReason)
	switch {
	case errors.Is(err, workflow.ErrSubmissionNotFound):
		respondErr(w, http.StatusNotFound, "Feedback not found.")
		return
	case errors.Is(err, render.ErrInputInvalid):
		respondErr(w, http.StatusUnprocessableEntity, "submission is missing data required for the certificate")
		return
	case err != nil:
		s.respondInternalErr(w, r, fmt.Errorf("transition to %s: %w", target, err))
		return
	}

	respond(w, http.StatusOK, updateStatusResponse{Success: true, Feedback: snapshot})
}

// ─── GET /api/feedback/:feedbackID/certificate ───────────────────────────────

// handleDownloadCertificate re-renders the certificate of an issued
// submission for direct download. Rendering is deterministic, so the bytes
// match the ones emailed at issuance.
func (s *Server) handleDownloadCertificate(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uuid.Parse(chi.URLParam(r, "feedbackID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid feedback id")
		return
	}

	sub, err := s.q.GetSubmissionByID(r.Context(), submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "Feedback not found.")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get submission: %w", err))
		return
	}

	if sub.CertificateStatus != db.CertificateStatusIssued || !sub.CertificateNumber.Valid {
		respondErr(w, http.StatusConflict, "certificate has not been issued for this feedback")
		return
	}

	document, err := s.renderer.Render(render.Input{
		FullName:          sub.InternDetails.FullName,
		StartMonth:        sub.StartMonth,
		EndMonth:          sub.EndMonth,
		Domain:            sub.Domain,
		Duration:          sub.Duration,
		UniqueID:          sub.UniqueID,
		CertificateNumber: sub.CertificateNumber.String,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("render certificate: %w", err))
		return
	}

	filename := fmt.Sprintf("Certificate_%s.pdf", strings.Join(strings.Fields(sub.InternDetails.FullName), "_"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(document)
}

// ─── DELETE /api/feedback/:feedbackID ────────────────────────────────────────

// handleDeleteFeedback removes a submission. The intern record is never
// deleted here — it outlives its submissions.
func (s *Server) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uuid.Parse(chi.URLParam(r, "feedbackID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid feedback id")
		return
	}

	if err := s.q.DeleteSubmission(r.Context(), submissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondErr(w, http.StatusNotFound, "Feedback not found")
			return
		}
		s.respondInternalErr(w, r, fmt.Errorf("delete submission: %w", err))
		return
	}

	respond(w, http.StatusOK, map[string]string{
		"message":   "Feedback deleted successfully",
		"deletedId": submissionID.String(),
	})
}
