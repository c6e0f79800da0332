package firestore

import (
	"time"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// Field paths on users/{uid}.
const (
	fieldEmail         = "email"
	fieldAlertSettings = "alertSettings"
	fieldEmailAlerts   = "alertSettings.emailAlerts"
	fieldKpThreshold   = "alertSettings.kpThreshold"
	fieldLastAlertSent = "lastAlertSent"

	keyEmailAlerts = "emailAlerts"
	keyKpThreshold = "kpThreshold"
)

// userDocument mirrors the settings part of users/{uid}. Fields this service
// does not own are left out and never written.
type userDocument struct {
	AlertSettings domain.AlertSettings `firestore:"alertSettings"`
}

// subscriberFromData maps the raw fields of users/{uid} onto a Subscriber.
// Only the fields alerting reads are inspected, and each is read leniently:
// a field of the wrong type is treated as absent, so a non-numeric threshold
// falls back to the default instead of hiding the subscriber.
func subscriberFromData(id string, data map[string]any) domain.Subscriber {
	sub := domain.Subscriber{ID: id}
	sub.ContactAddress, _ = data[fieldEmail].(string)

	if settings, ok := data[fieldAlertSettings].(map[string]any); ok {
		sub.AlertsEnabled, _ = settings[keyEmailAlerts].(bool)
		sub.KpThreshold, _ = numeric(settings[keyKpThreshold])
	}

	if at, ok := data[fieldLastAlertSent].(time.Time); ok && !at.IsZero() {
		at = at.UTC()
		sub.LastNotifiedAt = &at
	}
	return sub
}

// numeric returns v as a float64. ok is false when v is not a Firestore number.
func numeric(v any) (f float64, ok bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// mailDocument is the layout consumed by the Trigger Email extension.
type mailDocument struct {
	To        string      `firestore:"to"`
	Message   mailMessage `firestore:"message"`
	CreatedAt time.Time   `firestore:"createdAt"`
}

type mailMessage struct {
	Subject string `firestore:"subject"`
	Text    string `firestore:"text"`
	HTML    string `firestore:"html"`
}

func newMailDocument(m domain.MailboxMessage) mailDocument {
	return mailDocument{
		To: m.To,
		Message: mailMessage{
			Subject: m.Subject,
			Text:    m.Text,
			HTML:    m.HTML,
		},
		CreatedAt: m.CreatedAt,
	}
}
