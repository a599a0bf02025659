package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// HTTPMailer posts messages to an email delivery service.
type HTTPMailer struct {
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// NewHTTPMailer returns a mailer that posts to baseURL with the given API key.
func NewHTTPMailer(apiKey, baseURL, from string) *HTTPMailer {
	return &HTTPMailer{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

var _ Mailer = (*HTTPMailer)(nil)

// Send posts the message. Does not log message contents.
func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	if m.BaseURL == "" {
		return fmt.Errorf("email: delivery endpoint not configured")
	}
	body := map[string]interface{}{
		"from":     m.From,
		"to":       msg.To,
		"subject":  msg.Subject,
		"template": msg.Template,
		"data":     msg.Data,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}
	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
