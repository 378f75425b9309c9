package smtp

import (
	"context"
	"net"
	netsmtp "net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/internal/alias"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
)

func startTestServer(t *testing.T, processor *recordingProcessor, maxBytes int64) string {
	t.Helper()
	log := logger.NewNopLogger()
	cfg := &config.MailConfig{
		Domain:          "driversheet.com",
		MaxMessageBytes: maxBytes,
		MaxRecipients:   10,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
	}
	backend := NewBackend(context.Background(), log, alias.NewResolver(cfg.Domain), processor, cfg.MaxMessageBytes)
	server := NewServer(cfg, log, backend)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(func() {
		_ = server.Close()
	})

	return listener.Addr().String()
}

func testMessage(to string) []byte {
	return []byte("From: reports@example.com\r\n" +
		"To: " + to + "\r\n" +
		"Subject: test\r\n" +
		"\r\n" +
		"body line\r\n")
}

func TestServer_DeliversToFirstRecipient(t *testing.T) {
	processor := &recordingProcessor{}
	addr := startTestServer(t, processor, 1024*1024)

	err := netsmtp.SendMail(addr, nil, "reports@example.com",
		[]string{"user-first001@driversheet.com", "user-second02@driversheet.com"},
		testMessage("user-first001@driversheet.com"))
	require.NoError(t, err)

	calls := processor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "first001", calls[0].aliasKey)
	assert.Contains(t, calls[0].raw, "Subject: test")
}

func TestServer_RejectsUnknownRecipient(t *testing.T) {
	processor := &recordingProcessor{}
	addr := startTestServer(t, processor, 1024*1024)

	err := netsmtp.SendMail(addr, nil, "reports@example.com",
		[]string{"someone@example.com"}, testMessage("someone@example.com"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "550"), err.Error())
	assert.Empty(t, processor.Calls())
}

func TestServer_AcceptsWhenProcessingFails(t *testing.T) {
	processor := &recordingProcessor{err: mwerrors.ErrNoAttachment}
	addr := startTestServer(t, processor, 1024*1024)

	err := netsmtp.SendMail(addr, nil, "reports@example.com",
		[]string{"user-abc@driversheet.com"}, testMessage("user-abc@driversheet.com"))
	assert.NoError(t, err)
	assert.Len(t, processor.Calls(), 1)
}

func TestServer_RejectsOversizedMessage(t *testing.T) {
	processor := &recordingProcessor{}
	addr := startTestServer(t, processor, 32)

	err := netsmtp.SendMail(addr, nil, "reports@example.com",
		[]string{"user-abc@driversheet.com"}, testMessage("user-abc@driversheet.com"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "552"), err.Error())
	assert.Empty(t, processor.Calls())
}

func TestToSMTPError(t *testing.T) {
	assert.Nil(t, toSMTPError(nil))
	assert.Equal(t, errSMTPMailbox, toSMTPError(mwerrors.ErrProtocolReject))
	assert.Equal(t, errSMTPTooLarge, toSMTPError(mwerrors.ErrMessageTooLarge))
	assert.Equal(t, errSMTPSeq, toSMTPError(ErrBadSequence))
	assert.Equal(t, errSMTPBase, toSMTPError(assert.AnError))
}
