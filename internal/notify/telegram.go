// Package notify pushes alert-run summaries to Telegram. Optional: a
// notifier with empty credentials is disabled and every send is a no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bbxlabs/mirador/internal/model"
	"github.com/bbxlabs/mirador/internal/retry"
)

type Telegram struct {
	token  string
	chatID string
	client *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

// SendAlertSummary formats and sends one run notification. Failures are
// retried with backoff; the final error is for logging only and must never
// fail the run that produced the notification.
func (t *Telegram) SendAlertSummary(alertName string, n model.AlertRunNotification) error {
	if !t.Enabled() {
		return nil
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "📡 <b>%s</b>\n", alertName)
	fmt.Fprintf(&b, "Nuevas menciones: <b>%d</b>\n", n.ItemsDiscovered)
	if n.Aggregate != nil {
		fmt.Fprintf(&b, "Sentimiento global: %.2f\n", n.Aggregate.OverallSentiment)
		if n.Aggregate.NarrativeSummary != "" {
			fmt.Fprintf(&b, "\n%s", n.Aggregate.NarrativeSummary)
		}
	}

	return t.send(b.String())
}

func (t *Telegram) send(text string) error {
	return retry.WithRetry(context.Background(), retry.Config{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Backoff:     true,
	}, func() error {
		return t.sendOnce(text)
	})
}

func (t *Telegram) sendOnce(text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}
