package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/alias"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/models"
	"github.com/driversheet/mailworker/internal/tracing"
)

const maxAliasKeyAttempts = 10

type tenantRepository struct {
	db     *gorm.DB
	newKey func() (string, error)
}

func NewTenantRepository(db *gorm.DB) interfaces.TenantRepository {
	return &tenantRepository{
		db:     db,
		newKey: alias.NewKey,
	}
}

// GetByID returns nil without error when no tenant has the id.
func (r *tenantRepository) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.GetByID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("tenant_id", id)

	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &tenant, nil
}

// GetByAliasKey returns nil without error when no tenant owns the key.
func (r *tenantRepository) GetByAliasKey(ctx context.Context, aliasKey string) (*models.Tenant, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.GetByAliasKey")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("alias_key = ?", aliasKey).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &tenant, nil
}

// Upsert creates the tenant for a Google identity on first sight and otherwise updates its
// email and, when given, its sheet id. The alias key and paid flag are never touched.
func (r *tenantRepository) Upsert(ctx context.Context, input dto.TenantUpsert) (*models.Tenant, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.Upsert")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if input.GoogleID == "" || input.Email == "" {
		return nil, mwerrors.ErrInvalidInput
	}

	var tenant models.Tenant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Tenant
		err := tx.Where("google_id = ?", input.GoogleID).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{"email": input.Email}
			if input.SheetID != nil {
				updates["sheet_id"] = *input.SheetID
			}
			if err := tx.Model(&models.Tenant{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
				return err
			}
			return tx.Where("id = ?", existing.ID).First(&tenant).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			aliasKey, err := r.uniqueAliasKey(tx)
			if err != nil {
				return err
			}
			tenant = models.Tenant{
				GoogleID: input.GoogleID,
				Email:    input.Email,
				SheetID:  input.SheetID,
				AliasKey: aliasKey,
			}
			return tx.Create(&tenant).Error
		default:
			return err
		}
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	tracing.TagEntity(span, tenant.AliasKey)

	return &tenant, nil
}

func (r *tenantRepository) uniqueAliasKey(tx *gorm.DB) (string, error) {
	for i := 0; i < maxAliasKeyAttempts; i++ {
		candidate, err := r.newKey()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Tenant{}).Where("alias_key = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", ErrAliasKeyExhausted
}

// MarkPaidByEmail flags every tenant with the email as paid and returns how many rows changed.
func (r *tenantRepository) MarkPaidByEmail(ctx context.Context, email string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.MarkPaidByEmail")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	result := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("email = ?", email).
		Update("paid", true)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *tenantRepository) ListTrialExpired(ctx context.Context, createdBefore time.Time) ([]*models.Tenant, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.ListTrialExpired")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var tenants []*models.Tenant
	err := r.db.WithContext(ctx).
		Where("paid = ? AND created_at < ?", false, createdBefore).
		Order("id ASC").
		Find(&tenants).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return tenants, nil
}
