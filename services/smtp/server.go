package smtp

import (
	"context"
	"errors"
	"net"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/internal/logger"
)

type Server struct {
	log    logger.Logger
	server *gosmtp.Server
}

func NewServer(cfg *config.MailConfig, log logger.Logger, backend gosmtp.Backend) *Server {
	s := gosmtp.NewServer(backend)
	s.Addr = cfg.BindAddr
	s.Domain = cfg.Domain
	s.ReadTimeout = cfg.ReadTimeout
	s.WriteTimeout = cfg.WriteTimeout
	s.MaxMessageBytes = cfg.MaxMessageBytes
	s.MaxRecipients = cfg.MaxRecipients
	s.ErrorLog = zap.NewStdLog(log.Logger())

	return &Server{
		log:    log,
		server: s,
	}
}

func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) ListenAndServe() error {
	s.log.Infof("SMTP server listening on %s for domain %s", s.server.Addr, s.server.Domain)
	return s.server.ListenAndServe()
}

func (s *Server) Serve(l net.Listener) error {
	s.log.Infof("SMTP server listening on %s for domain %s", l.Addr().String(), s.server.Domain)
	return s.server.Serve(l)
}

// Shutdown stops accepting connections and waits for open sessions to finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.server.Close()
}

// IsServerClosed reports whether err is the result of a Shutdown or Close.
func IsServerClosed(err error) bool {
	return errors.Is(err, gosmtp.ErrServerClosed)
}
