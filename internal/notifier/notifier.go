package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/models"
)

const (
	EnvWebhookURL    = "REHAB_WEBHOOK_URL"
	EnvWebhookSecret = "REHAB_WEBHOOK_SECRET"
)

// Notifier posts milestone announcements to a webhook. A Notifier with no
// URL is a no-op.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delay  time.Duration
}

type WebhookPayload struct {
	Text          string `json:"text"`
	UserID        string `json:"user_id"`
	MilestoneDays int    `json:"milestone_days"`
}

func New(url, secret string) *Notifier {
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: constants.NotifyTimeout},
		delay:  constants.NotifyRetryDelay,
	}
}

// FromEnv builds a notifier from REHAB_WEBHOOK_URL and REHAB_WEBHOOK_SECRET
func FromEnv() *Notifier {
	return New(os.Getenv(EnvWebhookURL), os.Getenv(EnvWebhookSecret))
}

// Enabled reports whether a webhook URL is configured
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Notify sends one payload, retrying transient failures
func (n *Notifier) Notify(ctx context.Context, payload WebhookPayload) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < constants.NotifyMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.delay * time.Duration(attempt)):
			}
		}
		retry, err := n.send(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

// MilestonesReached announces each milestone and logs failures. It never
// returns an error so a daily log is not failed by a webhook outage.
func (n *Notifier) MilestonesReached(ctx context.Context, p models.Profile, reached []models.Milestone) {
	if !n.Enabled() {
		return
	}
	for _, m := range reached {
		payload := WebhookPayload{
			Text:          Message(p.DisplayName, m),
			UserID:        p.ID,
			MilestoneDays: m.Days,
		}
		if err := n.Notify(ctx, payload); err != nil {
			logger.Warn("Milestone notification failed", "user", p.ID, "days", m.Days, "error", err)
		}
	}
}

// Message is the announcement text for reaching m
func Message(name string, m models.Milestone) string {
	if name == "" {
		name = constants.AnonymousAuthor
	}
	return fmt.Sprintf("%s reached %s (%d days sober)!", name, m.Name, m.Days)
}

func (n *Notifier) send(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(constants.WebhookSecretHdr, n.secret)
	}

	res, err := n.client.Do(req)
	if err != nil {
		return true, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return false, nil
	}

	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	err = fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(msg))
	return res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests, err
}
