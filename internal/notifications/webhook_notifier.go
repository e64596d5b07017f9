package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// HTTPError is a non-2xx webhook answer.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "Failed to enable database access"
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, body)
}

type WebhookNotifier struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookNotifier(url, token string, hc *http.Client) *WebhookNotifier {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, token: token, http: hc}
}

type dbAccessPayload struct {
	Test    string `json:"test"`
	Timeout int    `json:"timeout"`
}

func (n *WebhookNotifier) RequestDBAccess(ctx context.Context, in DBAccessRequest) error {
	b, err := json.Marshal(dbAccessPayload{Test: "event", Timeout: in.Timeout})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("db access webhook: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
