package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/go-auth-nosql/internal/config"
	"github.com/go-auth-nosql/internal/domain"
	"gopkg.in/gomail.v2"
)

// Mailer submits HTML messages over SMTP and reports which recipients the
// server accepted at RCPT time.
type Mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	timeout  time.Duration
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		timeout:  cfg.SMTPTimeout,
	}
}

// Send delivers body to a single recipient. A recipient refused by the server is
// not an error; it is simply absent from the returned Delivery.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) (domain.Delivery, error) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	c, err := m.dial(ctx)
	if err != nil {
		return domain.Delivery{}, err
	}
	defer c.Close()

	if err := c.Mail(m.from); err != nil {
		return domain.Delivery{}, fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	var delivery domain.Delivery
	if err := c.Rcpt(to); err != nil {
		slog.Warn("smtp recipient refused", "err", err)
		_ = c.Reset()
		_ = c.Quit()
		return delivery, nil
	}
	delivery.Accepted = append(delivery.Accepted, to)

	w, err := c.Data()
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := msg.WriteTo(w); err != nil {
		return domain.Delivery{}, fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return domain.Delivery{}, fmt.Errorf("smtp end of data: %w", err)
	}
	_ = c.Quit()
	return delivery, nil
}

func (m *Mailer) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(m.host, m.port)
	d := net.Dialer{Timeout: m.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok && m.timeout > 0 {
		deadline = time.Now().Add(m.timeout)
	}
	if !deadline.IsZero() {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			c.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
				c.Close()
				return nil, fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	return c, nil
}
