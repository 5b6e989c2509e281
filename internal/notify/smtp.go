package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ErrNoRecipients is returned when an SMTPSink has nobody to mail.
var ErrNoRecipients = errors.New("no mail recipients")

// DefaultSMTPTimeout bounds one whole delivery, dial to QUIT.
const DefaultSMTPTimeout = 30 * time.Second

// SMTPConfig describes the outgoing mail account.
type SMTPConfig struct {
	Host     string // host:port
	From     string
	Password string
	To       []string
	Timeout  time.Duration // zero means DefaultSMTPTimeout
}

// SMTPSink mails reports as HTML.
type SMTPSink struct {
	cfg  SMTPConfig
	send func(ctx context.Context, a smtp.Auth, msg []byte) error
	now  func() time.Time
}

// NewSMTPSink returns a sink for cfg. Without explicit recipients the
// report goes back to the sender, like the original mailer did.
func NewSMTPSink(cfg SMTPConfig) (*SMTPSink, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp: sender address is required")
	}
	if len(cfg.To) == 0 {
		cfg.To = []string{cfg.From}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	s := &SMTPSink{cfg: cfg, now: time.Now}
	s.send = s.deliver
	return s, nil
}

func (s *SMTPSink) Send(ctx context.Context, subject, body string) error {
	if len(s.cfg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.hostname())
	}
	if err := s.send(ctx, auth, s.message(subject, body)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSink) hostname() string {
	host, _, err := net.SplitHostPort(s.cfg.Host)
	if err != nil {
		return s.cfg.Host
	}
	return host
}

// deliver runs one SMTP session under a deadline of cfg.Timeout or the
// context's, whichever is sooner. Cancelling ctx aborts a stalled server.
func (s *SMTPSink) deliver(ctx context.Context, auth smtp.Auth, msg []byte) error {
	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.Host)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, s.hostname())
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.hostname()}); err != nil {
			return err
		}
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, to := range s.cfg.To {
		if err := c.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPSink) message(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
