package email_processor

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	pkgerrors "github.com/pkg/errors"

	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/interfaces"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/metrics"
	"github.com/driversheet/mailworker/internal/tracing"
	"github.com/driversheet/mailworker/internal/utils"
	"github.com/driversheet/mailworker/services/report"
	"github.com/driversheet/mailworker/services/storage"
)

const AppSource = "mailworker-smtp"

type Processor struct {
	log        logger.Logger
	tenants    interfaces.TenantRepository
	extractor  interfaces.TextExtractor
	dispatcher interfaces.Dispatcher
	archive    interfaces.StorageService
	archiveTTL time.Duration
}

func NewProcessor(
	log logger.Logger,
	tenants interfaces.TenantRepository,
	extractor interfaces.TextExtractor,
	dispatcher interfaces.Dispatcher,
) *Processor {
	return &Processor{
		log:        log,
		tenants:    tenants,
		extractor:  extractor,
		dispatcher: dispatcher,
	}
}

// SetArchive stores every found report document in archive before it is read, each upload
// bounded by timeout. Nil turns archiving off.
func (p *Processor) SetArchive(archive interfaces.StorageService, timeout time.Duration) {
	p.archive = archive
	p.archiveTTL = timeout
}

// ProcessMessage runs one received message through the pipeline for the tenant owning
// aliasKey. A message for an unknown tenant is dropped without error. Any other stage
// failure ends processing and is returned; sink failures are handled by the dispatcher.
func (p *Processor) ProcessMessage(ctx context.Context, aliasKey string, raw []byte) (err error) {
	ctx = utils.SetAppSourceInContext(ctx, AppSource)
	ctx = utils.SetAliasKeyInContext(ctx, aliasKey)

	span, ctx := opentracing.StartSpanFromContext(ctx, "Processor.ProcessMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagAliasKey, aliasKey)
	span.LogKV("bytes", len(raw))

	start := time.Now()
	label := ""
	defer func() {
		if r := recover(); r != nil {
			metrics.MessagesTotal.WithLabelValues(metrics.OutcomeError).Inc()
			panic(r)
		}
		if label == "" {
			label = outcome(err)
		}
		metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
		metrics.MessagesTotal.WithLabelValues(label).Inc()
	}()

	log := p.log.With("alias_key", aliasKey)

	tenant, err := p.tenants.GetByAliasKey(ctx, aliasKey)
	if err != nil {
		tracing.TraceErr(span, err)
		return pkgerrors.Wrap(err, "tenant lookup failed")
	}
	if tenant == nil {
		label = metrics.OutcomeUnknownTenant
		log.Warn("No tenant for alias key, message dropped")
		return nil
	}
	ctx = utils.SetTenantInContext(ctx, strconv.FormatInt(tenant.ID, 10))
	tracing.TagTenant(span, strconv.FormatInt(tenant.ID, 10))
	tracing.TagEntity(span, tenant.AliasKey)
	log = log.With("tenant_id", tenant.ID)

	root, err := enmime.ReadParts(bytes.NewReader(raw))
	if err != nil {
		tracing.TraceErr(span, err)
		return pkgerrors.Wrap(err, "failed to parse message")
	}

	document, err := report.FindFirstPDF(root)
	if err != nil {
		log.Warn("Message has no pdf attachment")
		return err
	}

	p.archiveDocument(ctx, log, aliasKey, document)

	text, err := p.extractor.ExtractText(ctx, document)
	if err != nil {
		tracing.TraceErr(span, err)
		log.Warnf("Could not read pdf attachment: %v", err)
		return err
	}

	fields, err := report.ParseFields(text)
	if err != nil {
		tracing.TraceErr(span, err)
		log.Warnf("Report rejected: %v", err)
		return err
	}

	result := p.dispatcher.Dispatch(ctx, tenant, fields)
	log.Infof("Report for %s processed: gross=%.2f tips=%.2f mileage=%.1f sheetAppended=%t sheetSkipped=%t persisted=%t",
		fields.OrderDate.Format(dto.OrderDateLayout), fields.Gross, fields.Tips, utils.GetOrDefault(fields.Mileage, 0),
		result.SheetAppended, result.SheetSkipped, result.Persisted)

	return nil
}

// archiveDocument is best effort; a failed upload never stops the report.
func (p *Processor) archiveDocument(ctx context.Context, log logger.Logger, aliasKey string, document []byte) {
	if p.archive == nil {
		return
	}
	ctx, cancel := utils.WithTimeout(ctx, p.archiveTTL)
	defer cancel()

	sink := string(mwerrors.SinkArchive)
	start := time.Now()
	err := p.archive.Upload(ctx, storage.ReportKey(aliasKey, utils.Now()), document, storage.ContentTypePDF)
	metrics.SinkDuration.WithLabelValues(sink).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warnf("Could not archive report document: %v", err)
		metrics.SinkWritesTotal.WithLabelValues(sink, "failure").Inc()
		return
	}
	metrics.SinkWritesTotal.WithLabelValues(sink, "success").Inc()
}

func outcome(err error) string {
	var missing *mwerrors.MissingFieldError
	switch {
	case err == nil:
		return metrics.OutcomeProcessed
	case errors.Is(err, mwerrors.ErrNoAttachment):
		return metrics.OutcomeNoAttachment
	case errors.Is(err, mwerrors.ErrExtractionFailure):
		return metrics.OutcomeExtraction
	case errors.As(err, &missing):
		return metrics.OutcomeMissingField
	default:
		return metrics.OutcomeError
	}
}
