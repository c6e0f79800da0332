package smtp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/kp-alert-service/internal/config"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

const senderName = "Solar Dash Alerts"

// sender is the part of *mail.Client the dispatcher uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// Dispatcher sends alert emails over SMTP, throttled to a fixed send rate.
type Dispatcher struct {
	client  sender
	from    string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDispatcher creates an SMTP dispatcher. Port 465 uses implicit TLS; any
// other port negotiates STARTTLS when the server offers it.
func NewDispatcher(cfg *config.Config, logger *slog.Logger) (*Dispatcher, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUser),
		mail.WithPassword(cfg.SMTPPass),
		mail.WithTimeout(cfg.DispatchTimeout),
	}
	if cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: smtp client: %w", domain.ErrConfiguration, err)
	}
	return newDispatcher(client, cfg.SMTPFrom, cfg.SMTPRatePerSec, logger), nil
}

func newDispatcher(client sender, from string, perSec float64, logger *slog.Logger) *Dispatcher {
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{
		client:  client,
		from:    from,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		logger:  logger,
	}
}

// Send delivers one multipart text and HTML message.
func (d *Dispatcher) Send(ctx context.Context, n domain.Notification) error {
	msg, err := d.compose(n)
	if err != nil {
		return fmt.Errorf("%w: compose for %s: %w", domain.ErrDispatchFailure, n.SubscriberID, err)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %w", domain.ErrDispatchFailure, err)
	}

	if err := d.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: smtp send to %s: %w", domain.ErrDispatchFailure, n.SubscriberID, err)
	}
	d.logger.Debug("email sent", "subscriber_id", n.SubscriberID)
	return nil
}

func (d *Dispatcher) compose(n domain.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(senderName, d.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, n.HTML)
	return msg, nil
}
