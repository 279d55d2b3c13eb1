package db

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// CertificateStatus is the workflow state carried on a submission and
// mirrored onto the intern record.
type CertificateStatus string

const (
	CertificateStatusNotIssued CertificateStatus = "not_issued"
	CertificateStatusPending   CertificateStatus = "pending"
	CertificateStatusIssued    CertificateStatus = "issued"
	CertificateStatusRejected  CertificateStatus = "rejected"
)

// ParseCertificateStatus normalises a stored or requested status string.
// The pre-migration dataset used the display value "Not Issued" as the
// default, so that spelling is still accepted on read.
func ParseCertificateStatus(s string) (CertificateStatus, error) {
	switch s {
	case "not_issued", "Not Issued", "":
		return CertificateStatusNotIssued, nil
	case "pending":
		return CertificateStatusPending, nil
	case "issued":
		return CertificateStatusIssued, nil
	case "rejected":
		return CertificateStatusRejected, nil
	}
	return "", fmt.Errorf("db: unknown certificate status %q", s)
}

// InternDetails is the denormalised intern snapshot stored on each
// submission as JSONB. The submission keeps its own copy so certificates can
// be produced even if the canonical intern record changes or disappears.
type InternDetails struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Dob      string `json:"dob,omitempty"`
}

// Value implements driver.Valuer so InternDetails can be written to a jsonb
// column directly.
func (d InternDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for reads from a jsonb column.
func (d *InternDetails) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	case nil:
		*d = InternDetails{}
		return nil
	}
	return fmt.Errorf("db: cannot scan %T into InternDetails", src)
}

// Submission is one feedback/evaluation event. Certificate workflow state
// lives here; the interns table mirrors the outcome per person.
type Submission struct {
	ID                  uuid.UUID
	UniqueID            string
	InternDetails       InternDetails
	Domain              string
	Duration            string
	StartMonth          string
	EndMonth            string
	FeedbackText        string
	Media               pqtype.NullRawMessage
	CertificateNumber   sql.NullString
	CertificateStatus   CertificateStatus
	RejectionReason     sql.NullString
	CertificateIssuedAt sql.NullTime
	RejectedAt          sql.NullTime
	SubmittedAt         time.Time
}

// Intern is the canonical per-person record, keyed by unique_id.
type Intern struct {
	ID                  uuid.UUID
	UniqueID            string
	FullName            string
	Email               string
	Mobile              string
	Dob                 string
	CertificateNumber   sql.NullString
	CertificateStatus   CertificateStatus
	CertificateIssuedAt sql.NullTime
	RejectionReason     sql.NullString
	RejectedAt          sql.NullTime
	CreatedAt           time.Time
}
