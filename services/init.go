package services

import (
	"context"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/repository"
	"github.com/driversheet/mailworker/services/email_processor"
	"github.com/driversheet/mailworker/services/events"
	"github.com/driversheet/mailworker/services/fanout"
	"github.com/driversheet/mailworker/services/report"
	"github.com/driversheet/mailworker/services/sheets"
	"github.com/driversheet/mailworker/services/storage"
)

type Services struct {
	EventsService  *events.EventsService
	SheetsService  interfaces.SheetsService
	StorageService interfaces.StorageService
	TextExtractor  interfaces.TextExtractor
	Fanout         *fanout.Coordinator
	EmailProcessor *email_processor.Processor
}

func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	// events
	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
	if err != nil {
		return nil, err
	}

	sheetsService, err := sheets.NewSheetsService(ctx, cfg.SheetsConfig, log)
	if err != nil {
		eventsService.Close()
		return nil, err
	}

	storageService, err := storage.NewR2StorageService(cfg.R2Config)
	if err != nil {
		eventsService.Close()
		return nil, err
	}
	if storageService == nil {
		log.Info("R2 storage not configured, report archiving disabled")
	}

	extractor := report.NewPDFTextExtractor(log)
	coordinator := fanout.NewCoordinator(cfg.FanoutConfig, log, sheetsService, repos.LogRecordRepository, eventsService.EventPublisher())

	emailProcessor := email_processor.NewProcessor(log, repos.TenantRepository, extractor, coordinator)
	emailProcessor.SetArchive(storageService, cfg.FanoutConfig.ArchiveTimeout)

	services := Services{
		EventsService:  eventsService,
		SheetsService:  sheetsService,
		StorageService: storageService,
		TextExtractor:  extractor,
		Fanout:         coordinator,
		EmailProcessor: emailProcessor,
	}

	return &services, nil
}

func (s *Services) Close() error {
	return s.EventsService.Close()
}
