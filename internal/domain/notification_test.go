package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewKpNotification(t *testing.T) {
	sub := Subscriber{ID: "u1", ContactAddress: "a@x.com", KpThreshold: 5}
	n := NewKpNotification(sub, KpReading{Value: 6.67}, "https://dash.example/")

	assert.Equal(t, "u1", n.SubscriberID)
	assert.Equal(t, "a@x.com", n.To)
	assert.Equal(t, "Aurora Alert: Kp Index reached 6.67!", n.Subject)
	assert.Contains(t, n.Text, "6.67")
	assert.Contains(t, n.Text, "threshold of Kp 5")
	assert.Contains(t, n.HTML, "<b>Kp 5</b>")
	assert.Contains(t, n.HTML, `href="https://dash.example/"`)
}

func TestNewKpNotification_DefaultThreshold(t *testing.T) {
	n := NewKpNotification(Subscriber{ContactAddress: "a@x.com"}, KpReading{Value: 5}, "")
	assert.Contains(t, n.Text, "threshold of Kp 5")
	assert.Contains(t, n.Text, "Minor geomagnetic storm (G1)")
}

func TestNewMailboxMessage(t *testing.T) {
	at := time.Date(2024, time.May, 10, 21, 0, 0, 0, time.UTC)
	n := Notification{SubscriberID: "u1", To: "a@x.com", Subject: "s", Text: "t", HTML: "h"}
	m := NewMailboxMessage(n, at)
	assert.Equal(t, MailboxMessage{SubscriberID: "u1", To: "a@x.com", Subject: "s", Text: "t", HTML: "h", CreatedAt: at}, m)
}

func TestFormatKp(t *testing.T) {
	assert.Equal(t, "5", FormatKp(5))
	assert.Equal(t, "6.67", FormatKp(6.67))
}
