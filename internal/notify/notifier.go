// Package notify delivers alerts to an external webhook channel.
//
// DESIGN: Delivery failure is an ordinary boolean outcome, never an
// error that propagates. An unconfigured endpoint degrades to log-only
// mode: the alert is still written to the local log and the caller sees
// false. One bounded attempt per alert; retries are the caller's call
// and none are made here.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/poolwatch/poolwatch/internal/monitoring"
)

// Webhook posts alert payloads to a single HTTP endpoint.
type Webhook struct {
	endpoint string
	client   *http.Client
	logger   *monitoring.Logger
	now      func() time.Time
}

// NewWebhook creates a Webhook notifier. An empty endpoint is valid and
// selects log-only mode.
func NewWebhook(endpoint string, timeout time.Duration, logger *monitoring.Logger) *Webhook {
	return &Webhook{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("notify"),
		now:      time.Now,
	}
}

// Notify delivers one alert. Returns true only when the channel accepted
// the message with a 2xx response within the timeout.
func (w *Webhook) Notify(ctx context.Context, kind monitoring.AlertKind, message string) bool {
	// The local log line is the operator's fallback channel. It is
	// written before delivery so it survives any delivery failure.
	w.logger.Info().
		Str("kind", string(kind)).
		Str("message", message).
		Msg("alert")

	if w.endpoint == "" {
		return false
	}

	body, err := json.Marshal(buildPayload(kind, message, w.now()))
	if err != nil {
		w.logger.Error().Err(err).Msg("payload encode failed")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		w.logger.Error().Err(err).Msg("request build failed")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn().Err(err).Str("kind", string(kind)).Msg("delivery failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.logger.Warn().
			Int("status", resp.StatusCode).
			Str("kind", string(kind)).
			Msg("channel rejected alert")
		return false
	}

	return true
}
