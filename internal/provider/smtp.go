package provider

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
)

// SMTPProvider sends through a local SMTP relay. This is the default
// transport, standing in for the desktop mail client the tool was built
// around: one session, one sender identity.
type SMTPProvider struct {
	host        string
	port        int
	username    string
	password    string
	senderName  string
	senderEmail string

	dialTimeout time.Duration
}

// NewSMTPProvider creates an SMTP provider. Username/password may be empty
// for an unauthenticated local relay.
func NewSMTPProvider(host string, port int, username, password, senderName, senderEmail string) *SMTPProvider {
	if port == 0 {
		port = 25
	}
	return &SMTPProvider{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		senderName:  senderName,
		senderEmail: senderEmail,
		dialTimeout: 10 * time.Second,
	}
}

// Name identifies the provider.
func (p *SMTPProvider) Name() string { return "smtp" }

// ValidateConnection dials the relay and performs an SMTP handshake without
// sending. Surfaces configuration problems before a wave starts.
func (p *SMTPProvider) ValidateConnection(ctx context.Context) bool {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	conn, err := (&net.Dialer{Timeout: p.dialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Warn("smtp connection validation failed", "addr", addr, "error", err)
		return false
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, p.host)
	if err != nil {
		logger.Warn("smtp handshake failed", "addr", addr, "error", err)
		return false
	}
	defer c.Close()

	return c.Noop() == nil
}

// Send delivers one message through the relay. Failures are classified as
// RETRY when the error looks transient (connection, timeout, 4xx greylisting)
// and FAILED otherwise.
func (p *SMTPProvider) Send(ctx context.Context, msg *Message) (*SendOutcome, error) {
	if p.host == "" {
		return nil, fmt.Errorf("smtp host not configured")
	}

	messageID := fmt.Sprintf("%s@survey-tool", uuid.New().String())
	data := p.buildMIME(msg, messageID)

	recipients := []string{msg.To}
	if msg.CC != "" {
		recipients = append(recipients, msg.CC)
	}
	if msg.BCC != "" {
		recipients = append(recipients, msg.BCC)
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	if err := p.sendSMTP(ctx, addr, recipients, data); err != nil {
		status := StatusFailed
		var retryAfter time.Duration
		if isTransientSMTPError(err) {
			status = StatusRetry
			retryAfter = 30 * time.Second
		}
		logger.Error("smtp send failed", "recipient", msg.To, "status", string(status), "error", err)
		return &SendOutcome{Status: status, Error: err.Error(), RetryAfter: retryAfter}, nil
	}

	logger.Info("smtp send accepted", "recipient", msg.To, "message_id", messageID)
	return &SendOutcome{Status: StatusSuccess, MessageID: messageID}, nil
}

func (p *SMTPProvider) buildMIME(msg *Message, messageID string) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", p.senderName, p.senderEmail))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	if msg.CC != "" {
		buf.WriteString(fmt.Sprintf("Cc: %s\r\n", msg.CC))
	}
	replyTo := msg.ReplyTo
	if replyTo != "" {
		buf.WriteString(fmt.Sprintf("Reply-To: %s\r\n", replyTo))
	}
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s>\r\n", messageID))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// sendSMTP performs the full SMTP transaction with context-aware dialing.
func (p *SMTPProvider) sendSMTP(ctx context.Context, addr string, recipients []string, data []byte) error {
	conn, err := (&net.Dialer{Timeout: p.dialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, p.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if p.username != "" {
		auth := smtp.PlainAuth("", p.username, p.password, p.host)
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(p.senderEmail); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}

	return c.Quit()
}

// transientPatterns are error substrings that indicate a condition worth
// retrying: the relay being briefly unreachable, greylisting, timeouts.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporarily",
	"temporary",
	"try again",
	"server unavailable",
	"network",
	"421",
	"450",
	"451",
	"452",
}

func isTransientSMTPError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, pat := range transientPatterns {
		if strings.Contains(s, pat) {
			return true
		}
	}
	return false
}
