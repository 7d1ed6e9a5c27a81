package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

const defaultBaseURL = "https://api.brevo.com/v3"

// DeliveryError indicates the transactional email provider rejected or failed
// to confirm a send.
type DeliveryError struct {
	Message string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("email delivery failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("email delivery failed: %s", e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// BrevoConfig holds Brevo transactional email settings.
type BrevoConfig struct {
	APIKey         string
	SenderEmail    string
	SenderName     string
	RecipientEmail string
	BaseURL        string
}

// BrevoClient sends transactional emails via the Brevo SMTP API.
type BrevoClient struct {
	cfg        BrevoConfig
	httpClient *http.Client
}

// NewBrevoClient creates a new BrevoClient instance
func NewBrevoClient(cfg BrevoConfig) *BrevoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &BrevoClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendEmailRequest struct {
	Sender      address   `json:"sender"`
	To          []address `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
}

type sendEmailResponse struct {
	MessageID string `json:"messageId"`
}

// SendContactNotification emails the configured recipient about a new
// contact-form submission.
func (c *BrevoClient) SendContactNotification(ctx context.Context, submission *domain.ContactSubmission) error {
	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>")
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>", html.EscapeString(submission.Name))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>", html.EscapeString(submission.Email))
	fmt.Fprintf(&b, "<p><strong>Phone:</strong> %s</p>", html.EscapeString(submission.Phone))
	fmt.Fprintf(&b, "<p><strong>Message:</strong> %s</p>", html.EscapeString(submission.Message))

	return c.send(ctx, c.cfg.RecipientEmail, "New Contact Form Submission", b.String())
}

// SendCouncilRequest emails a structured council service request produced by
// the voice agent.
func (c *BrevoClient) SendCouncilRequest(ctx context.Context, request *domain.CouncilRequest) error {
	recipient := request.To
	if recipient == "" {
		recipient = c.cfg.RecipientEmail
	}

	subject := request.Subject
	if subject == "" {
		subject = "New Council Request"
	}

	residentEmail := request.ResidentEmail
	if residentEmail == "" {
		residentEmail = "N/A"
	}
	preferred := request.PreferredMethod
	if preferred == "" {
		preferred = "N/A"
	}
	urgency := request.Urgency
	if urgency == "" {
		urgency = "Normal"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New Council Request - %s</h2>", html.EscapeString(request.RequestType))
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>", html.EscapeString(request.ResidentName))
	fmt.Fprintf(&b, "<p><strong>Phone:</strong> %s</p>", html.EscapeString(request.ResidentPhone))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>", html.EscapeString(residentEmail))
	fmt.Fprintf(&b, "<p><strong>Address:</strong> %s</p>", html.EscapeString(request.Address))
	fmt.Fprintf(&b, "<p><strong>Preferred contact:</strong> %s</p>", html.EscapeString(preferred))
	fmt.Fprintf(&b, "<p><strong>Urgency:</strong> %s</p>", html.EscapeString(urgency))
	fmt.Fprintf(&b, "<p><strong>Details:</strong><br>%s</p>", html.EscapeString(request.Details))
	if request.ExtraMetadata != "" {
		fmt.Fprintf(&b, "<h3>Extra metadata</h3><pre>%s</pre>", html.EscapeString(request.ExtraMetadata))
	}

	return c.send(ctx, recipient, subject, b.String())
}

func (c *BrevoClient) send(ctx context.Context, recipient, subject, htmlContent string) error {
	if c.cfg.APIKey == "" {
		return &DeliveryError{Message: "brevo api key not configured"}
	}
	if recipient == "" {
		return &DeliveryError{Message: "no recipient configured"}
	}

	payload := sendEmailRequest{
		Sender:      address{Email: c.cfg.SenderEmail, Name: c.cfg.SenderName},
		To:          []address{{Email: recipient}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Message: "brevo api error", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{Message: fmt.Sprintf("brevo api status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))}
	}

	var parsed sendEmailResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.MessageID == "" {
		// Brevo confirms delivery with a messageId; anything else is a failure.
		return &DeliveryError{Message: "brevo did not confirm delivery (no messageId)"}
	}

	return nil
}
