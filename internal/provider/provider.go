// Package provider defines the outbound mail capability consumed by the
// dispatch pipeline, plus the concrete adapters.
//
// Adapters are split into individual files:
//   - smtp.go: local SMTP relay (default transport)
//   - ses.go:  AWS SES v2 API
//
// Retryability classification is provider-specific: each adapter decides
// whether a failure is transient and reports it through the outcome status.
// The pipeline never inspects provider errors itself.
package provider

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status classifies the outcome of a send attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusRetry   Status = "RETRY"
)

// Message is a fully-rendered email ready for a provider. Construct with
// NewMessage so invalid messages are rejected before any transport cost.
type Message struct {
	To          string
	Subject     string
	Body        string // HTML content
	CC          string
	BCC         string
	ReplyTo     string
	Attachments []string
}

// Validation errors returned by NewMessage.
var (
	ErrInvalidRecipient = errors.New("invalid recipient email address")
	ErrEmptySubject     = errors.New("subject cannot be empty")
	ErrEmptyBody        = errors.New("body cannot be empty")
)

// MessageOption configures optional Message fields.
type MessageOption func(*Message)

// WithCC sets the CC header.
func WithCC(cc string) MessageOption { return func(m *Message) { m.CC = cc } }

// WithBCC sets the BCC header.
func WithBCC(bcc string) MessageOption { return func(m *Message) { m.BCC = bcc } }

// WithReplyTo sets the Reply-To header.
func WithReplyTo(replyTo string) MessageOption { return func(m *Message) { m.ReplyTo = replyTo } }

// WithAttachments adds file attachments by path.
func WithAttachments(paths ...string) MessageOption {
	return func(m *Message) { m.Attachments = append(m.Attachments, paths...) }
}

// NewMessage builds a validated message. It fails fast on an empty or
// malformed recipient, empty subject, or empty body so no provider call is
// wasted on a message that can never be delivered.
func NewMessage(to, subject, body string, opts ...MessageOption) (*Message, error) {
	if to == "" || !strings.Contains(to, "@") {
		return nil, ErrInvalidRecipient
	}
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if body == "" {
		return nil, ErrEmptyBody
	}

	m := &Message{To: to, Subject: subject, Body: body}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SendOutcome is returned by a provider after attempting delivery.
type SendOutcome struct {
	Status     Status
	MessageID  string
	Error      string
	RetryAfter time.Duration // optional provider hint, zero when absent
}

// Success reports whether the message was accepted by the provider.
func (o *SendOutcome) Success() bool { return o.Status == StatusSuccess }

// ShouldRetry reports whether the provider classified the failure as transient.
func (o *SendOutcome) ShouldRetry() bool { return o.Status == StatusRetry }

// Provider is the outbound mail capability. Implementations wrap one
// authenticated client session and are not required to be reentrant; the
// dispatch pipeline drives a provider from a single goroutine.
type Provider interface {
	// Send attempts delivery of one message. Transport-level failures are
	// reported through the outcome, not the error; a non-nil error means
	// the provider itself is unusable (misconfigured, not initialized).
	Send(ctx context.Context, msg *Message) (*SendOutcome, error)

	// ValidateConnection checks that the provider is reachable and
	// configured, without sending anything.
	ValidateConnection(ctx context.Context) bool

	// Name identifies the provider for logs and mail log rows.
	Name() string
}

// TestSend delivers a short fixed message to verify connectivity end to end.
func TestSend(ctx context.Context, p Provider, recipient string) (*SendOutcome, error) {
	msg, err := NewMessage(
		recipient,
		"Test Email from Survey Tool",
		"<p>This is a test email to verify email connectivity.</p>"+
			"<p>If you receive this, the email configuration is working correctly.</p>",
	)
	if err != nil {
		return nil, err
	}
	return p.Send(ctx, msg)
}
