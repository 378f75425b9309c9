package smtp

import (
	"context"
	"errors"
	"io"

	gosmtp "github.com/emersion/go-smtp"

	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/alias"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/metrics"
)

const dataChunkSize = 32 * 1024

var (
	errSMTPMailbox = &gosmtp.SMTPError{
		Code:         550,
		EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
		Message:      "Invalid recipient mailbox",
	}
	errSMTPTooLarge = &gosmtp.SMTPError{
		Code:         552,
		EnhancedCode: gosmtp.EnhancedCode{5, 3, 4},
		Message:      "Message exceeds maximum size",
	}
	errSMTPSeq = &gosmtp.SMTPError{
		Code:         503,
		EnhancedCode: gosmtp.EnhancedCode{5, 5, 1},
		Message:      "Invalid command sequence",
	}
	errSMTPBase = &gosmtp.SMTPError{
		Code:         451,
		EnhancedCode: gosmtp.EnhancedCode{4, 0, 0},
		Message:      "Temporary error",
	}
)

// Backend creates one Session per connection.
type Backend struct {
	ctx       context.Context
	log       logger.Logger
	resolver  *alias.Resolver
	processor interfaces.MessageProcessor
	maxBytes  int64
}

func NewBackend(ctx context.Context, log logger.Logger, resolver *alias.Resolver, processor interfaces.MessageProcessor, maxBytes int64) *Backend {
	return &Backend{
		ctx:       ctx,
		log:       log,
		resolver:  resolver,
		processor: processor,
		maxBytes:  maxBytes,
	}
}

func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	metrics.SessionsTotal.Inc()

	remoteAddr := ""
	if conn := c.Conn(); conn != nil {
		remoteAddr = conn.RemoteAddr().String()
	}
	log := b.log.With("remote_addr", remoteAddr)

	session := NewSession(log, b.resolver, b.processor, b.maxBytes)
	session.Greet(c.Hostname(), remoteAddr)

	return &smtpSession{
		ctx:     b.ctx,
		session: session,
	}, nil
}

// smtpSession adapts go-smtp's callbacks onto Session.
type smtpSession struct {
	ctx      context.Context
	session  *Session
	declared []string
}

func (s *smtpSession) Mail(from string, _ *gosmtp.MailOptions) error {
	s.declared = nil
	s.session.BeginEnvelope(from)
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.declared = append(s.declared, to)
	return toSMTPError(s.session.AddRecipient(to))
}

func (s *smtpSession) Data(r io.Reader) error {
	if err := s.session.BeginBody(s.declared); err != nil {
		return toSMTPError(err)
	}

	chunk := make([]byte, dataChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if werr := s.session.WriteChunk(chunk[:n]); werr != nil {
				return toSMTPError(werr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.session.Abort()
			return err
		}
	}

	return toSMTPError(s.session.EndBody(s.ctx))
}

func (s *smtpSession) Reset() {
	s.declared = nil
	s.session.Abort()
}

func (s *smtpSession) Logout() error {
	s.session.Abort()
	return nil
}

func toSMTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mwerrors.ErrProtocolReject):
		return errSMTPMailbox
	case errors.Is(err, mwerrors.ErrMessageTooLarge):
		return errSMTPTooLarge
	case errors.Is(err, ErrBadSequence):
		return errSMTPSeq
	default:
		return errSMTPBase
	}
}
