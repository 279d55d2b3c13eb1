// Package email defines the interface for transactional email delivery and
// provides a Brevo-backed implementation.
package email

import "context"

// CertificateDetails is the issuance metadata listed in the certificate
// delivery email.
type CertificateDetails struct {
	CertificateNumber string
	UniqueID          string
	Domain            string
	Duration          string
	StartMonth        string
	EndMonth          string
}

// IssuedParams holds the data for the certificate delivery email. The
// rendered document is attached to the message.
type IssuedParams struct {
	To          string // recipient email address
	InternName  string
	Certificate []byte // rendered PDF bytes
	Details     CertificateDetails
}

// RejectedParams holds the data for the rejection email. Reason may be empty.
type RejectedParams struct {
	To           string
	InternName   string
	SubmissionID string // shown as the request ID for follow-up
	Reason       string
}

// PendingParams holds the data for the under-review email.
type PendingParams struct {
	To           string
	InternName   string
	SubmissionID string
}

// Sender is the interface the workflow and redelivery queue use to send
// outcome email. Tests inject a stub that records calls without hitting the
// network.
type Sender interface {
	// SendIssued delivers the certificate with the rendered document
	// attached. Called after the issuance has been persisted.
	SendIssued(ctx context.Context, p IssuedParams) error

	// SendRejected informs the intern that the request was not approved.
	SendRejected(ctx context.Context, p RejectedParams) error

	// SendPending informs the intern that the request is under review.
	SendPending(ctx context.Context, p PendingParams) error
}
