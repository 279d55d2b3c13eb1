package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSendFailed wraps every provider-side delivery failure so callers can
// classify with errors.Is regardless of the underlying cause.
var ErrSendFailed = errors.New("email: delivery failed")

const defaultEndpoint = "https://api.brevo.com/v3/smtp/email"

// brevoClient is the concrete Sender backed by the Brevo transactional API.
type brevoClient struct {
	apiKey     string
	fromAddr   string // e.g. "certificates@athenura.com"
	fromName   string // e.g. "Athenura"
	orgName    string // used inside the email bodies
	endpoint   string
	httpClient *http.Client
}

// NewBrevoClient returns a Sender that delivers email via Brevo.
func NewBrevoClient(apiKey, fromAddr, fromName, orgName string) Sender {
	return &brevoClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		orgName:  orgName,
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── BREVO API SHAPES ────────────────────────────────────────────────────────

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"` // base64
}

type brevoRequest struct {
	Sender      brevoAddress      `json:"sender"`
	To          []brevoAddress    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ─── SENDER IMPLEMENTATION ───────────────────────────────────────────────────

// SendIssued delivers the certificate email with the PDF attached.
func (c *brevoClient) SendIssued(ctx context.Context, p IssuedParams) error {
	subject := fmt.Sprintf("🎓 Your Internship Completion Certificate - %s", p.InternName)

	req := c.newRequest(p.To, subject, issuedHTML(p.InternName, c.orgName, p.Details))
	req.Attachment = []brevoAttachment{{
		Name:    attachmentName(p.InternName),
		Content: base64.StdEncoding.EncodeToString(p.Certificate),
	}}

	return c.send(ctx, req)
}

// SendRejected delivers the not-approved email.
func (c *brevoClient) SendRejected(ctx context.Context, p RejectedParams) error {
	subject := "📝 Update Regarding Your Internship Certificate Request"
	return c.send(ctx, c.newRequest(p.To, subject, rejectedHTML(p.InternName, c.orgName, p.SubmissionID, p.Reason)))
}

// SendPending delivers the under-review email.
func (c *brevoClient) SendPending(ctx context.Context, p PendingParams) error {
	subject := "⏳ Your Certificate Request is Under Review"
	return c.send(ctx, c.newRequest(p.To, subject, pendingHTML(p.InternName, c.orgName, p.SubmissionID)))
}

// attachmentName derives the attachment filename from the intern's name,
// with whitespace runs collapsed to underscores.
func attachmentName(internName string) string {
	return fmt.Sprintf("Certificate_%s.pdf", strings.Join(strings.Fields(internName), "_"))
}

// ─── HTTP SEND ───────────────────────────────────────────────────────────────

func (c *brevoClient) newRequest(to, subject, html string) brevoRequest {
	return brevoRequest{
		Sender:      brevoAddress{Name: c.fromName, Email: c.fromAddr},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	}
}

func (c *brevoClient) send(ctx context.Context, reqBody brevoRequest) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: http request: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrSendFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed brevoResponse
		if json.Unmarshal(respBytes, &parsed) == nil && parsed.Message != "" {
			return fmt.Errorf("%w: brevo %s: %s", ErrSendFailed, parsed.Code, parsed.Message)
		}
		return fmt.Errorf("%w: unexpected status %d: %.200s", ErrSendFailed, resp.StatusCode, string(respBytes))
	}

	return nil
}
