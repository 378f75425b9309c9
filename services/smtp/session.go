package smtp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/alias"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/metrics"
	"github.com/driversheet/mailworker/internal/tracing"
)

type State int

const (
	StateIdle State = iota
	StateGreeted
	StateEnvelopeOpen
	StateRecipientsCaptured
	StateBodyStreaming
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGreeted:
		return "greeted"
	case StateEnvelopeOpen:
		return "envelope_open"
	case StateRecipientsCaptured:
		return "recipients_captured"
	case StateBodyStreaming:
		return "body_streaming"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrBadSequence = errors.New("command out of sequence")

// Session tracks one mail transaction at a time for a single connection. It is owned by
// the connection's goroutine and is not safe for concurrent use.
type Session struct {
	log       logger.Logger
	resolver  *alias.Resolver
	processor interfaces.MessageProcessor
	maxBytes  int64

	state   State
	message dto.InboundMessage
	body    bytes.Buffer
}

func NewSession(log logger.Logger, resolver *alias.Resolver, processor interfaces.MessageProcessor, maxBytes int64) *Session {
	return &Session{
		log:       log,
		resolver:  resolver,
		processor: processor,
		maxBytes:  maxBytes,
		state:     StateIdle,
	}
}

func (s *Session) State() State {
	return s.state
}

// AliasKeys returns a copy of the alias keys captured for the current transaction.
func (s *Session) AliasKeys() []string {
	return append([]string(nil), s.message.AliasKeys...)
}

func (s *Session) BufferedBytes() int {
	return s.body.Len()
}

// Greet records the peer's declared identity.
func (s *Session) Greet(hostname, remoteAddr string) {
	s.message.Helo = hostname
	s.message.RemoteAddr = remoteAddr
	s.state = StateGreeted
}

// BeginEnvelope starts a new transaction, dropping anything left from a previous one on
// the same connection.
func (s *Session) BeginEnvelope(from string) {
	s.clear()
	s.message.From = from
	s.state = StateEnvelopeOpen
}

// AddRecipient accepts addr when it names a tenant mailbox. Rejected recipients leave the
// list unchanged.
func (s *Session) AddRecipient(addr string) error {
	if s.state != StateEnvelopeOpen && s.state != StateRecipientsCaptured {
		return ErrBadSequence
	}
	key, ok := s.resolver.Resolve(addr)
	if !ok {
		metrics.RecipientsRejected.Inc()
		s.log.Infof("Rejected recipient %s", addr)
		return mwerrors.ErrProtocolReject
	}
	s.appendKey(key)
	s.state = StateRecipientsCaptured
	return nil
}

// BeginBody moves to body streaming. When no recipient was accepted the declared
// recipients are resolved instead.
func (s *Session) BeginBody(declared []string) error {
	if s.state != StateEnvelopeOpen && s.state != StateRecipientsCaptured {
		return ErrBadSequence
	}
	if len(s.message.AliasKeys) == 0 {
		for _, key := range s.resolver.ResolveAll(declared) {
			s.appendKey(key)
		}
	}
	s.body.Reset()
	s.state = StateBodyStreaming
	return nil
}

// WriteChunk buffers part of the body. Going over the size limit aborts the transaction
// and discards what was buffered.
func (s *Session) WriteChunk(chunk []byte) error {
	if s.state != StateBodyStreaming {
		return ErrBadSequence
	}
	if s.maxBytes > 0 && int64(s.body.Len())+int64(len(chunk)) > s.maxBytes {
		metrics.MessagesOversized.Inc()
		s.log.Warnf("Message from %s exceeds %d bytes, transaction aborted", s.message.From, s.maxBytes)
		s.Abort()
		return mwerrors.ErrMessageTooLarge
	}
	s.body.Write(chunk)
	return nil
}

// EndBody hands the buffered message to the processor for the first captured alias key
// and waits for it to finish. Processing failures are logged and never reach the peer:
// the message is accepted either way.
func (s *Session) EndBody(ctx context.Context) error {
	if s.state != StateBodyStreaming {
		return ErrBadSequence
	}
	defer s.complete()

	s.message.Data = s.body.Bytes()
	metrics.MessageBytesTotal.Add(float64(len(s.message.Data)))

	aliasKey, ok := s.message.PrimaryAliasKey()
	if !ok {
		metrics.MessagesTotal.WithLabelValues(metrics.OutcomeNoRecipient).Inc()
		s.log.Warnf("Message from %s has no tenant recipient, nothing to process", s.message.From)
		return nil
	}

	s.process(ctx, aliasKey, s.message.Data)
	return nil
}

func (s *Session) process(ctx context.Context, aliasKey string, raw []byte) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.EndBody")
	defer span.Finish()
	tracing.SetDefaultSMTPSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagAliasKey, aliasKey)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing message: %v", r)
			tracing.TraceErr(span, err)
			s.log.Errorf("Recovered from panic processing message for %s: %v", aliasKey, r)
		}
	}()

	if err := s.processor.ProcessMessage(ctx, aliasKey, raw); err != nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("Message for %s accepted but not processed: %v", aliasKey, err)
	}
}

// Abort drops the current transaction and returns to the greeted state.
func (s *Session) Abort() {
	s.clear()
	if s.state != StateIdle {
		s.state = StateGreeted
	}
}

func (s *Session) complete() {
	s.clear()
	s.state = StateCompleted
}

func (s *Session) clear() {
	s.message.From = ""
	s.message.AliasKeys = nil
	s.message.Data = nil
	s.body = bytes.Buffer{}
}

func (s *Session) appendKey(key string) {
	for _, existing := range s.message.AliasKeys {
		if existing == key {
			return
		}
	}
	s.message.AliasKeys = append(s.message.AliasKeys, key)
}
