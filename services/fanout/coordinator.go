package fanout

import (
	"context"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/interfaces"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/metrics"
	"github.com/driversheet/mailworker/internal/models"
	"github.com/driversheet/mailworker/internal/tracing"
	"github.com/driversheet/mailworker/internal/utils"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusSkipped = "skipped"
)

type Coordinator struct {
	cfg       *config.FanoutConfig
	log       logger.Logger
	sheets    interfaces.SheetsService
	logs      interfaces.LogRecordRepository
	publisher interfaces.EventPublisher
}

// NewCoordinator wires the two sinks. publisher may be nil, in which case no
// notifications are sent.
func NewCoordinator(cfg *config.FanoutConfig, log logger.Logger, sheets interfaces.SheetsService, logs interfaces.LogRecordRepository, publisher interfaces.EventPublisher) *Coordinator {
	if cfg == nil {
		cfg = &config.FanoutConfig{}
	}
	return &Coordinator{
		cfg:       cfg,
		log:       log,
		sheets:    sheets,
		logs:      logs,
		publisher: publisher,
	}
}

// Dispatch writes the fields to the tenant's spreadsheet, when it has one, and then to the
// log store. The log store write is attempted whatever happened to the spreadsheet append.
// Sink failures are logged and reported in the result, never returned.
func (c *Coordinator) Dispatch(ctx context.Context, tenant *models.Tenant, fields *dto.ExtractedFields) dto.FanoutResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Coordinator.Dispatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, strconv.FormatInt(tenant.ID, 10))

	var result dto.FanoutResult
	log := c.log.With("tenant_id", tenant.ID)

	if tenant.HasSheet() {
		result.SheetErr = c.appendRow(ctx, *tenant.SheetID, fields)
		if result.SheetErr != nil {
			tracing.TraceErr(span, result.SheetErr)
			log.Warnf("Spreadsheet append failed: %v", result.SheetErr)
		} else {
			result.SheetAppended = true
		}
	} else {
		result.SheetSkipped = true
		metrics.SinkWritesTotal.WithLabelValues(string(mwerrors.SinkSpreadsheet), statusSkipped).Inc()
		log.Info("Tenant has no sheet configured, append skipped")
	}

	record := &models.LogRecord{
		TenantID:  tenant.ID,
		OrderDate: fields.OrderDate,
		Gross:     fields.Gross,
		Tips:      fields.Tips,
		Mileage:   fields.Mileage,
	}
	result.PersistErr = c.persist(ctx, record)
	if result.PersistErr != nil {
		tracing.TraceErr(span, result.PersistErr)
		log.Errorf("Log record persistence failed: %v", result.PersistErr)
		return result
	}
	result.Persisted = true
	result.LogRecordID = record.ID

	c.notify(ctx, tenant, record, result.SheetAppended)

	return result
}

func (c *Coordinator) appendRow(ctx context.Context, sheetID string, fields *dto.ExtractedFields) error {
	ctx, cancel := utils.WithTimeout(ctx, c.cfg.SheetsTimeout)
	defer cancel()

	start := time.Now()
	err := c.sheets.AppendRow(ctx, sheetID, fields.SheetRow())
	metrics.SinkDuration.WithLabelValues(string(mwerrors.SinkSpreadsheet)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SinkWritesTotal.WithLabelValues(string(mwerrors.SinkSpreadsheet), statusFailure).Inc()
		return mwerrors.NewSinkFailure(mwerrors.SinkSpreadsheet, err)
	}
	metrics.SinkWritesTotal.WithLabelValues(string(mwerrors.SinkSpreadsheet), statusSuccess).Inc()
	return nil
}

func (c *Coordinator) persist(ctx context.Context, record *models.LogRecord) error {
	ctx, cancel := utils.WithTimeout(ctx, c.cfg.PersistTimeout)
	defer cancel()

	start := time.Now()
	err := c.logs.Create(ctx, record)
	metrics.SinkDuration.WithLabelValues(string(mwerrors.SinkPersistence)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SinkWritesTotal.WithLabelValues(string(mwerrors.SinkPersistence), statusFailure).Inc()
		return mwerrors.NewSinkFailure(mwerrors.SinkPersistence, err)
	}
	metrics.SinkWritesTotal.WithLabelValues(string(mwerrors.SinkPersistence), statusSuccess).Inc()
	return nil
}

func (c *Coordinator) notify(ctx context.Context, tenant *models.Tenant, record *models.LogRecord, sheetSynced bool) {
	if c.publisher == nil {
		return
	}
	event := dto.LogRecorded{
		LogRecordID: record.ID,
		TenantID:    tenant.ID,
		OrderDate:   record.OrderDate.Format(dto.OrderDateLayout),
		Gross:       record.Gross,
		Tips:        record.Tips,
		Mileage:     record.Mileage,
		SheetSynced: sheetSynced,
	}

	ctx, cancel := utils.WithTimeout(ctx, c.cfg.EventsTimeout)
	defer cancel()

	if err := c.publisher.PublishLogRecorded(ctx, tenant.AliasKey, event); err != nil {
		c.log.Warnf("Failed to publish log recorded event for tenant %d: %v", tenant.ID, err)
	}
}
