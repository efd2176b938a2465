package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appconfig "github.com/ignite/campaign-tracker/internal/config"
)

// SparkPostMailer sends through the SparkPost transmissions API.
type SparkPostMailer struct {
	apiKey     string
	baseURL    string
	fromEmail  string
	fromName   string
	httpClient *http.Client
}

// NewSparkPostMailer creates a SparkPost-backed mailer.
func NewSparkPostMailer(cfg appconfig.MailerConfig) *SparkPostMailer {
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SparkPostMailer{
		apiKey:     cfg.SparkPost.APIKey,
		baseURL:    cfg.SparkPost.BaseURL,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send delivers one message via a SparkPost transmission. SparkPost's own
// open/click tracking is disabled; the campaign HTML already carries ours.
func (m *SparkPostMailer) Send(ctx context.Context, msg Message) error {
	payload := map[string]interface{}{
		"recipients": []map[string]interface{}{
			{"address": map[string]string{"email": msg.To, "name": msg.ToName}},
		},
		"content": map[string]interface{}{
			"from":    map[string]string{"email": m.fromEmail, "name": m.fromName},
			"subject": msg.Subject,
			"html":    msg.HTMLBody,
			"text":    msg.TextBody,
		},
		"options": map[string]interface{}{
			"open_tracking":  false,
			"click_tracking": false,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transmission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.baseURL+"/api/v1/transmissions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sparkpost send to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sparkpost send to %s: status %d: %s", msg.To, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
