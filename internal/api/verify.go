package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type verifyRequest struct {
	UniqueID string `json:"uniqueId" validate:"required,max=64"`
}

type verifyResponse struct {
	UniqueID            string `json:"uniqueId"`
	FullName            string `json:"fullName"`
	CertificateStatus   string `json:"certificateStatus"`
	CertificateNumber   string `json:"certificateNumber,omitempty"`
	CertificateIssuedAt string `json:"certificateIssuedAt,omitempty"`
}

// handleVerifyIntern is the public verification lookup. It intentionally
// exposes only the fields needed to confirm a certificate is genuine, never
// contact details.
func (s *Server) handleVerifyIntern(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	intern, err := s.q.GetInternByUniqueID(r.Context(), strings.TrimSpace(req.UniqueID))
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "No intern found with this unique ID")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get intern: %w", err))
		return
	}

	resp := verifyResponse{
		UniqueID:          intern.UniqueID,
		FullName:          intern.FullName,
		CertificateStatus: string(intern.CertificateStatus),
		CertificateNumber: intern.CertificateNumber.String,
	}
	if intern.CertificateIssuedAt.Valid {
		resp.CertificateIssuedAt = intern.CertificateIssuedAt.Time.UTC().Format(time.RFC3339)
	}

	respond(w, http.StatusOK, resp)
}
