package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username
	Timeout  time.Duration
}

// Sender is satisfied by *gomail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Mailer delivers notifications as HTML mail over SMTP with STARTTLS.
type Mailer struct {
	client Sender
	from   string
}

func NewSMTPMailer(opts Options) (*Mailer, error) {
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	clientOpts := []gomail.Option{
		gomail.WithPort(opts.Port),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(opts.Timeout),
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(opts.Username),
			gomail.WithPassword(opts.Password),
		)
	}
	c, err := gomail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	from := opts.From
	if from == "" {
		from = opts.Username
	}
	return NewMailer(c, from), nil
}

func NewMailer(client Sender, from string) *Mailer {
	return &Mailer{client: client, from: from}
}

func (m *Mailer) Notify(ctx context.Context, n usecase.Notification) error {
	msg, err := m.build(n)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", n.To, err)
	}
	logging.FromCtx(ctx).Info("mail sent", "to", n.To, "order_id", n.OrderID, "status", n.Status)
	return nil
}

func (m *Mailer) build(n usecase.Notification) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from address %q: %w", m.from, err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("to address %q: %w", n.To, err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, n.Body)
	return msg, nil
}

// LogNotifier writes notifications to the log instead of sending them.
// Used when no SMTP host is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n usecase.Notification) error {
	logging.FromCtx(ctx).Info("mail (not sent, smtp disabled)", "to", n.To, "subject", n.Subject, "order_id", n.OrderID)
	return nil
}

var (
	_ usecase.Notifier = (*Mailer)(nil)
	_ usecase.Notifier = LogNotifier{}
)
