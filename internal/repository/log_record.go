package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/models"
	"github.com/driversheet/mailworker/internal/tracing"
)

type logRecordRepository struct {
	db *gorm.DB
}

func NewLogRecordRepository(db *gorm.DB) interfaces.LogRecordRepository {
	return &logRecordRepository{db: db}
}

func (r *logRecordRepository) Create(ctx context.Context, record *models.LogRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "logRecordRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("tenant_id", record.TenantID)

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// ListRecentByTenant returns the newest records first.
func (r *logRecordRepository) ListRecentByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.LogRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "logRecordRepository.ListRecentByTenant")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("tenant_id", tenantID)

	var records []*models.LogRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("parsed_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return records, nil
}
