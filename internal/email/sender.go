package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
)

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// ConnectionTester is implemented by senders that talk to a remote server.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// ErrNoSTARTTLS is returned when the SMTP server does not offer STARTTLS.
var ErrNoSTARTTLS = errors.New("smtp server does not support STARTTLS")

// NewSender builds the Sender selected by cfg.Transport. With KeepCopy set,
// SMTP delivery is combined with a FileEmailSender writing to OutboxDir.
func NewSender(cfg config.EmailConfig, logger logging.Logger) (Sender, error) {
	switch cfg.Transport {
	case config.TransportSMTP, "":
		primary := NewSMTPSender(cfg, logger)
		if !cfg.KeepCopy {
			return primary, nil
		}
		fileSender, err := NewFileEmailSender(cfg.OutboxDir, logger)
		if err != nil {
			return nil, err
		}
		return NewCompositeEmailSender(primary, fileSender), nil
	case config.TransportLog:
		return NewLoggingSender(logger), nil
	case config.TransportFile:
		fileSender, err := NewFileEmailSender(cfg.OutboxDir, logger)
		if err != nil {
			return nil, err
		}
		return fileSender, nil
	default:
		return nil, fmt.Errorf("unknown email transport %q", cfg.Transport)
	}
}

// SMTPSender delivers mail over SMTP. The connection is upgraded with
// STARTTLS before authenticating.
type SMTPSender struct {
	host      string
	addr      string
	from      string
	auth      smtp.Auth
	tlsConfig *tls.Config
	logger    logging.Logger
}

// NewSMTPSender creates a new SMTPSender. Authentication is skipped when no
// username is configured.
func NewSMTPSender(cfg config.EmailConfig, logger logging.Logger) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPServer)
	}
	return &SMTPSender{
		host:      cfg.SMTPServer,
		addr:      cfg.SMTPAddr(),
		from:      cfg.FromEmail,
		auth:      auth,
		tlsConfig: &tls.Config{ServerName: cfg.SMTPServer},
		logger:    logging.OrNop(logger),
	}
}

// Send sends an email using SMTP.
// The rawMessage is expected to be the complete email content.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(rawMessage); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp QUIT: %w", err)
	}

	s.logger.Info("Email sent via SMTP to %v (Subject: %s)", to, subject)
	return nil
}

// TestConnection connects, upgrades to TLS and authenticates without
// sending anything.
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Quit()
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		client.Close()
		return nil, ErrNoSTARTTLS
	}
	if err := client.StartTLS(s.tlsConfig); err != nil {
		client.Close()
		return nil, fmt.Errorf("smtp STARTTLS: %w", err)
	}

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}
	return client, nil
}

// LoggingSender is a mock implementation that just logs email details.
// Useful for development or when SMTP isn't configured.
type LoggingSender struct {
	logger logging.Logger
}

// NewLoggingSender creates a LoggingSender.
func NewLoggingSender(logger logging.Logger) *LoggingSender {
	return &LoggingSender{logger: logging.OrNop(logger)}
}

// Send logs the email details instead of sending.
func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.logger.Info("Email (logged, not sent) To: %v Subject: %s Size: %d bytes", to, subject, len(rawMessage))
	s.logger.Debug("Raw message:\n%s", rawMessage)
	return nil
}
