package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Transport opens mail sessions
type Transport interface {
	Open(ctx context.Context) (Session, error)
}

// Session sends messages over one established connection
type Session interface {
	Send(from string, to []string, msg []byte) error
	Close() error
}

// SMTPConfig holds the SMTP server settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration
}

// SMTPTransport dials an SMTP server, upgrading with STARTTLS when offered
// and authenticating when credentials are set
type SMTPTransport struct {
	config SMTPConfig
}

// NewSMTPTransport creates a transport for config
func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &SMTPTransport{config: config}
}

// Open connects, negotiates TLS and logs in
func (t *SMTPTransport) Open(ctx context.Context) (Session, error) {
	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))

	dialer := &net.Dialer{Timeout: t.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, t.config.Host)
	if err != nil {
		conn.Close() // nolint:errcheck
		return nil, fmt.Errorf("greeting %s: %w", addr, err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.config.Host}); err != nil {
			client.Close() // nolint:errcheck
			return nil, fmt.Errorf("starting TLS: %w", err)
		}
	}

	if t.config.User != "" {
		auth := smtp.PlainAuth("", t.config.User, t.config.Password, t.config.Host)
		if err := client.Auth(auth); err != nil {
			client.Close() // nolint:errcheck
			return nil, fmt.Errorf("authenticating: %w", err)
		}
	}

	return &smtpSession{client: client}, nil
}

type smtpSession struct {
	client *smtp.Client
}

func (s *smtpSession) Send(from string, to []string, msg []byte) (err error) {
	defer func() {
		// leave the connection usable for the next recipient
		if err != nil {
			s.client.Reset() // nolint:errcheck
		}
	}()

	if err := s.client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := s.client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := s.client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close() // nolint:errcheck
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	return nil
}

func (s *smtpSession) Close() error {
	err := s.client.Quit()
	if err != nil && !strings.Contains(err.Error(), "closed") {
		return err
	}
	return nil
}
