// Package mail delivers contact-form messages through the Resend
// transactional email API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/monteverasrl/montevera/internal/core/domain"
)

// Sender implements ports.MailSender using Resend.
type Sender struct {
	endpoint string
	apiKey   string
	from     string
	to       string
	http     *http.Client
}

// NewSender creates a Resend client.
func NewSender(endpoint, apiKey, from, to string) *Sender {
	return &Sender{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		to:       to,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send posts the message to the company inbox. Subject falls back to
// "Nuevo mensaje" when the form left it empty, matching the website copy.
func (s *Sender) Send(ctx context.Context, msg *domain.ContactMessage) error {
	subject := msg.Subject
	if subject == "" {
		subject = "Nuevo mensaje"
	}

	body, err := json.Marshal(sendRequest{
		From:    s.from,
		To:      []string{s.to},
		Subject: subject,
		Text:    fmt.Sprintf("Nombre: %s\nEmail: %s\nTeléfono: %s\n\n%s", msg.Name, msg.Email, msg.Phone, msg.Body),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("resend HTTP %d: %s", resp.StatusCode, detail)
	}
	return nil
}
