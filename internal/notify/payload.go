// Package notify - payload.go builds the webhook message body.
package notify

import (
	"time"

	"github.com/poolwatch/poolwatch/internal/monitoring"
)

// payload is the Slack-compatible webhook body. The channel contract only
// requires a text field plus structured blocks, which attachments satisfy.
type payload struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Color    string `json:"color"`
	Fallback string `json:"fallback"`
	Text     string `json:"text"`
	Footer   string `json:"footer"`
	TS       int64  `json:"ts"`
}

// marker returns the visual prefix for an alert kind.
func marker(kind monitoring.AlertKind) string {
	switch kind {
	case monitoring.KindFailover:
		return "🔄"
	case monitoring.KindErrorRate:
		return "🚨"
	case monitoring.KindStartup:
		return "👀"
	default:
		return "⚠️"
	}
}

// color returns the attachment color for an alert kind.
func color(kind monitoring.AlertKind) string {
	switch kind {
	case monitoring.KindErrorRate:
		return "danger"
	case monitoring.KindFailover:
		return "warning"
	default:
		return "good"
	}
}

// buildPayload assembles the webhook body for one alert.
func buildPayload(kind monitoring.AlertKind, message string, now time.Time) payload {
	text := marker(kind) + " " + message
	return payload{
		Text: text,
		Attachments: []attachment{{
			Color:    color(kind),
			Fallback: message,
			Text:     message,
			Footer:   "poolwatch · " + string(kind),
			TS:       now.Unix(),
		}},
	}
}
