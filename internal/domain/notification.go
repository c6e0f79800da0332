package domain

import (
	"fmt"
	"html"
	"strconv"
	"time"
)

// Notification is a single message addressed to one subscriber.
type Notification struct {
	SubscriberID string
	To           string
	Subject      string
	Text         string
	HTML         string
}

// MailboxMessage is a queued email for an external delivery pipeline.
type MailboxMessage struct {
	SubscriberID string    `json:"-"`
	To           string    `json:"to"`
	Subject      string    `json:"subject"`
	Text         string    `json:"text"`
	HTML         string    `json:"html"`
	CreatedAt    time.Time `json:"created_at"`
}

// FormatKp renders a Kp value without trailing zeros ("6.67", "5").
func FormatKp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewKpNotification composes the alert sent when a reading meets the
// subscriber's threshold. The body carries both the current Kp and the threshold.
func NewKpNotification(sub Subscriber, reading KpReading, dashboardURL string) Notification {
	kp := FormatKp(reading.Value)
	threshold := FormatKp(sub.Threshold())
	url := html.EscapeString(dashboardURL)

	return Notification{
		SubscriberID: sub.ID,
		To:           sub.ContactAddress,
		Subject:      fmt.Sprintf("Aurora Alert: Kp Index reached %s!", kp),
		Text: fmt.Sprintf("The current Kp index has reached %s (%s). "+
			"This meets or exceeds your alert threshold of Kp %s. "+
			"Go outside or check the dashboard for aurora viewing opportunities: %s",
			kp, StormDescription(reading.Value), threshold, dashboardURL),
		HTML: fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px; margin: auto;">
  <h1 style="color: #ff9800;">Solar Activity Alert</h1>
  <p>The current <b>Kp index has reached %s</b> (%s).</p>
  <p>This meets or exceeds your alert threshold of <b>Kp %s</b>.</p>
  <p>Go outside or check the dashboard for aurora viewing opportunities!</p>
  <a href="%s" style="display: inline-block; padding: 10px 20px; background: #2196f3; color: white; text-decoration: none; border-radius: 5px;">View Live Dashboard</a>
  <hr style="margin-top: 20px; border: 0; border-top: 1px solid #eee;">
  <p style="font-size: 0.8em; color: #777;">You received this because you enabled email alerts on Solar Dash.</p>
</div>`, kp, StormDescription(reading.Value), threshold, url),
	}
}

// NewMailboxMessage converts a notification into its queued form.
func NewMailboxMessage(n Notification, createdAt time.Time) MailboxMessage {
	return MailboxMessage{
		SubscriberID: n.SubscriberID,
		To:           n.To,
		Subject:      n.Subject,
		Text:         n.Text,
		HTML:         n.HTML,
		CreatedAt:    createdAt,
	}
}
