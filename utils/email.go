package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

const (
	MailDriverZepto  = "zepto"
	MailDriverResend = "resend"
)

// email request payload for ZeptoMail API
type emailRequest struct {
	From     emailAddress  `json:"from"`
	To       []toRecipient `json:"to"`
	Subject  string        `json:"subject"`
	HtmlBody string        `json:"htmlbody"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type toRecipient struct {
	Email emailWithName `json:"email_address"`
}

type emailWithName struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Mailer sends HTML mail through ZeptoMail or Resend.
// A nil *Mailer is valid and sends nothing.
type Mailer struct {
	driver string
	apiURL string // ZeptoMail endpoint, or a Resend base URL override
	apiKey string
	from   string
	client *http.Client
	resend *resend.Client
	log    zerolog.Logger
}

// NewMailer returns nil when the key or sender is empty, or when ZeptoMail is
// chosen without an endpoint.
func NewMailer(driver, apiURL, apiKey, from string, logger zerolog.Logger) *Mailer {
	if driver == "" {
		driver = MailDriverZepto
	}
	if apiKey == "" || from == "" || (driver == MailDriverZepto && apiURL == "") {
		return nil
	}

	m := &Mailer{
		driver: driver,
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    logger.With().Str("component", "mailer").Str("driver", driver).Logger(),
	}
	if driver == MailDriverResend {
		m.resend = resend.NewClient(apiKey)
		if apiURL != "" {
			if base, err := url.Parse(apiURL); err == nil {
				m.resend.BaseURL = base
			}
		}
	}
	return m
}

func (m *Mailer) Enabled() bool { return m != nil }

// SendEmail sends one HTML message to a single recipient.
func (m *Mailer) SendEmail(ctx context.Context, to, toName, subject, body string) error {
	if m == nil {
		return fmt.Errorf("missing required email config")
	}
	var err error
	if m.driver == MailDriverResend {
		err = m.sendViaResend(ctx, to, subject, body)
	} else {
		err = m.sendViaZepto(ctx, to, toName, subject, body)
	}
	if err != nil {
		return err
	}
	m.log.Debug().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func (m *Mailer) sendViaZepto(ctx context.Context, to, toName, subject, body string) error {
	payload := emailRequest{
		From: emailAddress{Address: m.from},
		To: []toRecipient{
			{Email: emailWithName{Address: to, Name: toName}},
		},
		Subject:  subject,
		HtmlBody: body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zeptomail API error: %s", resp.Status)
	}
	return nil
}

func (m *Mailer) sendViaResend(ctx context.Context, to, subject, body string) error {
	_, err := m.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			return fmt.Errorf("email rate limit exceeded (resets in %s seconds): %w", rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}
	return nil
}

// RegistrationEmail builds the confirmation sent after an event registration.
func RegistrationEmail(name, title string, date time.Time, clock, location string) (subject, body string) {
	subject = "Registration confirmed: " + title
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>You are registered for <strong>%s</strong> on %s at %s, %s.</p><p>See you there!</p>",
		html.EscapeString(name),
		html.EscapeString(title),
		date.Format("Monday, 2 January 2006"),
		html.EscapeString(clock),
		html.EscapeString(location),
	)
	return subject, body
}
