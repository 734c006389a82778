// -----------------------------------------------------------------------
// Mailer Service - SMTP delivery of follow-up reminders
// Messages are composed as multipart/alternative with a rendered HTML part
// -----------------------------------------------------------------------

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/yuin/goldmark"
)

// ErrNotConfigured is returned when the notifier is disabled or incomplete
var ErrNotConfigured = errors.New("smtp notifier is not configured")

// deliverFunc hands a composed message to the SMTP server
type deliverFunc func(ctx context.Context, from string, to []string, msg []byte) error

// Service sends plain text reminders with an HTML alternative
type Service struct {
	config   common.NotifierConfig
	markdown goldmark.Markdown
	deliver  deliverFunc
	now      func() time.Time
	logger   arbor.ILogger
}

// NewService creates a new mailer service
func NewService(config common.NotifierConfig, logger arbor.ILogger) *Service {
	s := &Service{
		config:   config,
		markdown: goldmark.New(),
		now:      time.Now,
		logger:   logger,
	}
	s.deliver = s.sendSMTP
	return s
}

// IsConfigured checks if SMTP is configured with minimum required settings
func (s *Service) IsConfigured() bool {
	return s.config.Enabled && s.config.SMTPHost != "" && s.config.From != ""
}

// Send composes and delivers one message
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	msg, err := s.Compose(to, subject, body)
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, s.config.From, []string{to}, msg); err != nil {
		s.logger.Error().Err(err).Str("to", to).Msg("Failed to send email")
		return err
	}

	s.logger.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

// Compose builds the RFC 5322 message. The body is sent as text and as
// markdown rendered to HTML.
func (s *Service) Compose(to, subject, body string) ([]byte, error) {
	var html bytes.Buffer
	if err := s.markdown.Convert([]byte(body), &html); err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	var h mail.Header
	h.SetDate(s.now())
	h.SetAddressList("From", []*mail.Address{{Name: s.config.FromName, Address: s.config.From}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create body: %w", err)
	}
	if err := writePart(tw, "text/plain", body); err != nil {
		return nil, err
	}
	if err := writePart(tw, "text/html", html.String()); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, content string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

// sendSMTP uses implicit TLS on 465 and STARTTLS otherwise when UseTLS is set
func (s *Service) sendSMTP(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(s.config.SMTPHost, strconv.Itoa(s.config.SMTPPort))
	tlsConfig := &tls.Config{ServerName: s.config.SMTPHost}

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	var conn net.Conn
	var err error
	if s.config.UseTLS && s.config.SMTPPort == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if s.config.UseTLS && s.config.SMTPPort != 465 {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set mail recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
