package notify

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"callscreen/internal/metrics"
)

// Notifier pushes decision lines to a messaging webhook. Delivery is fire
// and forget: a failed notification is counted and logged, never surfaced
// to the decision pipeline.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New returns nil when no webhook is configured, callers treat a nil
// notifier as disabled.
func New(webhookURL string) *Notifier {
	if webhookURL == "" {
		return nil
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send appends the URL-escaped text to the webhook URL and fires a GET,
// the way instant-messaging bot endpoints expect it.
func (n *Notifier) Send(text string) {
	if n == nil {
		return
	}
	resp, err := n.client.Get(n.webhookURL + url.QueryEscape(text))
	if err != nil {
		metrics.IncNotifyErrors()
		log.Printf("notify failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.IncNotifyErrors()
		log.Printf("notify failed: %v", fmt.Errorf("webhook status %d", resp.StatusCode))
	}
}
