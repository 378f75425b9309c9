package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/driversheet/mailworker/api"
	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/internal/alias"
	"github.com/driversheet/mailworker/internal/cron"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/repository"
	"github.com/driversheet/mailworker/internal/tracing"
	"github.com/driversheet/mailworker/services"
	"github.com/driversheet/mailworker/services/smtp"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	smtpServer   *smtp.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize jaeger tracer: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories
	repos := repository.InitRepositories(db)

	// Initialize services
	svcs, err := services.InitServices(ctx, cfg, appLogger, repos)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// Mail ingress
	resolver := alias.NewResolver(cfg.MailConfig.Domain)
	backend := smtp.NewBackend(ctx, appLogger, resolver, svcs.EmailProcessor, cfg.MailConfig.MaxMessageBytes)
	smtpServer := smtp.NewServer(cfg.MailConfig, appLogger, backend)

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		smtpServer:   smtpServer,
		services:     svcs,
		repositories: repos,
		cronManager:  cron.NewCronManager(cfg.CronConfig, appLogger, kubernetesClient(appLogger), repos.TenantRepository),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// kubernetesClient returns nil outside a cluster, which runs cron without leader election.
func kubernetesClient(log logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Infof("Not running in kubernetes: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("Could not create kubernetes client: %v", err)
		return nil
	}
	return client
}

func (s *Server) Initialize() error {
	// Setup API routes
	api.RegisterRoutes(s.router, s.config, s.log, s.repositories)

	podName := os.Getenv("POD_NAME")
	if podName == "" {
		podName = "local"
	}
	return s.cronManager.Start(podName, os.Getenv("POD_NAMESPACE"))
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		// Create a new span for the panic
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		// Mark span as failed
		ext.Error.Set(span, true)

		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	if err := s.Initialize(); err != nil {
		return err
	}

	// Start SMTP server in a goroutine with panic recovery
	go s.wrapGoroutine("smtp_server", func() {
		if err := s.smtpServer.ListenAndServe(); err != nil && !smtp.IsServerClosed(err) {
			s.log.Errorf("SMTP server error: %v", err)
		}
	})

	// Start HTTP server in a goroutine with panic recovery
	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})
	s.log.Info("Mail worker is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	// Set up signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	s.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Stop accepting mail first so in-flight transactions finish their fan-out
	if err := s.smtpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("SMTP server shutdown error: %v", err)
		s.smtpServer.Close()
	} else {
		s.log.Info("SMTP server shut down successfully")
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	s.cronManager.Stop()

	if err := s.services.Close(); err != nil {
		s.log.Errorf("Services shutdown error: %v", err)
	}

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return s.log.Sync()
}
