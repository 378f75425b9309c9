package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/driversheet/mailworker/dto"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/models"
	"github.com/driversheet/mailworker/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, MigrateDB(nil, db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestTenantRepository_UpsertCreatesOncePerIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantRepository(newTestDB(t))

	created, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-1", Email: "a@example.com", SheetID: utils.ToPtr("sheet-1")})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Len(t, created.AliasKey, 8)
	assert.False(t, created.Paid)

	updated, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-1", Email: "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.AliasKey, updated.AliasKey)
	assert.Equal(t, "b@example.com", updated.Email)
	require.NotNil(t, updated.SheetID)
	assert.Equal(t, "sheet-1", *updated.SheetID)

	replaced, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-1", Email: "b@example.com", SheetID: utils.ToPtr("sheet-2")})
	require.NoError(t, err)
	assert.Equal(t, "sheet-2", *replaced.SheetID)
	assert.Equal(t, created.AliasKey, replaced.AliasKey)
}

func TestTenantRepository_UpsertRejectsEmptyIdentity(t *testing.T) {
	repo := NewTenantRepository(newTestDB(t))
	_, err := repo.Upsert(context.Background(), dto.TenantUpsert{Email: "a@example.com"})
	assert.ErrorIs(t, err, mwerrors.ErrInvalidInput)
}

func TestTenantRepository_UpsertRetriesAliasCollision(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantRepository(newTestDB(t)).(*tenantRepository)

	keys := []string{"samekey1", "samekey1", "otherkey"}
	repo.newKey = func() (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}

	first, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-1", Email: "a@example.com"})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-2", Email: "b@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "samekey1", first.AliasKey)
	assert.Equal(t, "otherkey", second.AliasKey)
}

func TestTenantRepository_UpsertAliasKeyExhausted(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantRepository(newTestDB(t)).(*tenantRepository)
	repo.newKey = func() (string, error) { return "fixedkey", nil }

	_, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-1", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-2", Email: "b@example.com"})
	assert.ErrorIs(t, err, ErrAliasKeyExhausted)
}

func TestTenantRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantRepository(newTestDB(t))

	tenant, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-1", Email: "a@example.com"})
	require.NoError(t, err)

	byKey, err := repo.GetByAliasKey(ctx, tenant.AliasKey)
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, tenant.ID, byKey.ID)

	byID, err := repo.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, tenant.AliasKey, byID.AliasKey)

	missing, err := repo.GetByAliasKey(ctx, "nobody00")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTenantRepository_MarkPaidAndTrialExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTenantRepository(db)

	old := utils.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, db.Create(&models.Tenant{GoogleID: "g-old", Email: "old@example.com", AliasKey: "oldkey01", CreatedAt: old}).Error)
	require.NoError(t, db.Create(&models.Tenant{GoogleID: "g-paid", Email: "paid@example.com", AliasKey: "paidkey1", CreatedAt: old}).Error)
	_, err := repo.Upsert(ctx, dto.TenantUpsert{GoogleID: "g-new", Email: "new@example.com"})
	require.NoError(t, err)

	affected, err := repo.MarkPaidByEmail(ctx, "paid@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.MarkPaidByEmail(ctx, "unknown@example.com")
	require.NoError(t, err)
	assert.Zero(t, affected)

	expired, err := repo.ListTrialExpired(ctx, utils.Now().Add(-models.TrialPeriod))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "g-old", expired[0].GoogleID)
}

func TestTenantRepository_TrialExpiredBoundary(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTenantRepository(db)

	now := utils.Now().Truncate(time.Second)
	cutoff := now.Add(-models.TrialPeriod)
	atCutoff := &models.Tenant{GoogleID: "g-edge", Email: "edge@example.com", AliasKey: "edgekey1", CreatedAt: cutoff}
	pastCutoff := &models.Tenant{GoogleID: "g-past", Email: "past@example.com", AliasKey: "pastkey1", CreatedAt: cutoff.Add(-time.Second)}
	require.NoError(t, db.Create(atCutoff).Error)
	require.NoError(t, db.Create(pastCutoff).Error)

	expired, err := repo.ListTrialExpired(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "g-past", expired[0].GoogleID)

	assert.False(t, atCutoff.TrialExpired(now))
	assert.True(t, pastCutoff.TrialExpired(now))
}

func TestLogRecordRepository_CreateAndListRecent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewLogRecordRepository(db)

	base := utils.Now().Add(-time.Hour)
	for i := 0; i < 35; i++ {
		record := &models.LogRecord{
			TenantID:  1,
			OrderDate: utils.Date(2024, 3, 4),
			Gross:     float64(i),
			Tips:      1,
			ParsedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, record))
		assert.NotZero(t, record.ID)
	}
	require.NoError(t, repo.Create(ctx, &models.LogRecord{TenantID: 2, OrderDate: utils.Date(2024, 3, 4), Gross: 1, Tips: 1}))

	records, err := repo.ListRecentByTenant(ctx, 1, 30)
	require.NoError(t, err)
	require.Len(t, records, 30)
	assert.Equal(t, 34.0, records[0].Gross)
	assert.Equal(t, 5.0, records[29].Gross)
	assert.Nil(t, records[0].Mileage)
}

func TestLogRecordRepository_CreateAssignsParsedAt(t *testing.T) {
	repo := NewLogRecordRepository(newTestDB(t))
	mileage := 12.5
	record := &models.LogRecord{TenantID: 1, OrderDate: utils.Date(2024, 3, 4), Gross: 10, Tips: 2, Mileage: &mileage}

	require.NoError(t, repo.Create(context.Background(), record))
	assert.False(t, record.ParsedAt.IsZero())

	records, err := repo.ListRecentByTenant(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Mileage)
	assert.Equal(t, 12.5, *records[0].Mileage)
}
