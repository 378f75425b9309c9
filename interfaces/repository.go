package interfaces

import (
	"context"
	"time"

	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/internal/models"
)

type TenantRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
	GetByAliasKey(ctx context.Context, aliasKey string) (*models.Tenant, error)
	Upsert(ctx context.Context, input dto.TenantUpsert) (*models.Tenant, error)
	MarkPaidByEmail(ctx context.Context, email string) (int64, error)
	// ListTrialExpired returns unpaid tenants created strictly before createdBefore.
	ListTrialExpired(ctx context.Context, createdBefore time.Time) ([]*models.Tenant, error)
}

type LogRecordRepository interface {
	Create(ctx context.Context, record *models.LogRecord) error
	ListRecentByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.LogRecord, error)
}
