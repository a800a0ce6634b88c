package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender sends partnership update emails. Nil = no-op.
type Sender interface {
	SendPartnershipUpdate(ctx context.Context, toEmail, toName, subject, headline, body string) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string // defaults to the Brevo v3 endpoint; overridden in tests
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@showroom.app"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, toName, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Showroom"},
		To:          []BrevoTo{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@showroom.app", Name: "Showroom Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendPartnershipUpdate sends one transition notice (offer accepted, payment contested, ...).
func (c *BrevoClient) SendPartnershipUpdate(ctx context.Context, toEmail, toName, subject, headline, body string) error {
	if c.APIKey == "" || toEmail == "" {
		return nil
	}
	if toName == "" {
		toName = "there"
	}
	return c.send(ctx, toEmail, toName, subject, EmailLayout(updateContent(toName, headline, body)))
}

func updateContent(name, headline, body string) string {
	return fmt.Sprintf(`
    <h1>%s</h1>
    <p>Hi %s,</p>
    <p>%s</p>
    <center>
      <a href="https://showroom.app/partnerships" class="button">Open your partnerships</a>
    </center>
`, EscapeHTML(headline), EscapeHTML(name), EscapeHTML(body))
}
