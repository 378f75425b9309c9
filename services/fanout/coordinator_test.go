package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/dto"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/models"
	"github.com/driversheet/mailworker/internal/utils"
)

type mockSheets struct {
	mock.Mock
}

func (m *mockSheets) AppendRow(ctx context.Context, sheetID string, values []interface{}) error {
	args := m.Called(ctx, sheetID, values)
	return args.Error(0)
}

type mockLogs struct {
	mock.Mock
}

func (m *mockLogs) Create(ctx context.Context, record *models.LogRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockLogs) ListRecentByTenant(ctx context.Context, tenantID int64, limit int) ([]*models.LogRecord, error) {
	args := m.Called(ctx, tenantID, limit)
	return args.Get(0).([]*models.LogRecord), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishLogRecorded(ctx context.Context, tenant string, event dto.LogRecorded) error {
	args := m.Called(ctx, tenant, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}

func testFields() *dto.ExtractedFields {
	mileage := 12.5
	return &dto.ExtractedFields{
		OrderDate: utils.Date(2024, 3, 4),
		Gross:     100.25,
		Tips:      10,
		Mileage:   &mileage,
	}
}

func testTenant(sheetID *string) *models.Tenant {
	return &models.Tenant{ID: 7, AliasKey: "abc12345", SheetID: sheetID}
}

func newCoordinator(sheets *mockSheets, logs *mockLogs, publisher *mockPublisher) *Coordinator {
	cfg := &config.FanoutConfig{SheetsTimeout: time.Second, PersistTimeout: time.Second}
	if publisher == nil {
		return NewCoordinator(cfg, logger.NewNopLogger(), sheets, logs, nil)
	}
	return NewCoordinator(cfg, logger.NewNopLogger(), sheets, logs, publisher)
}

func TestDispatch_BothSinks(t *testing.T) {
	sheets := &mockSheets{}
	logs := &mockLogs{}
	sheets.On("AppendRow", mock.Anything, "sheet-1", []interface{}{"2024-03-04", 100.25, 10.0, 12.5}).Return(nil)
	logs.On("Create", mock.Anything, mock.MatchedBy(func(r *models.LogRecord) bool {
		return r.TenantID == 7 && r.Gross == 100.25 && r.Tips == 10 && *r.Mileage == 12.5
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.LogRecord).ID = 42
	}).Return(nil)

	result := newCoordinator(sheets, logs, nil).Dispatch(context.Background(), testTenant(utils.ToPtr("sheet-1")), testFields())

	assert.True(t, result.OK())
	assert.True(t, result.SheetAppended)
	assert.True(t, result.Persisted)
	assert.Equal(t, int64(42), result.LogRecordID)
	sheets.AssertExpectations(t)
	logs.AssertExpectations(t)
}

func TestDispatch_SheetFailureStillPersists(t *testing.T) {
	sheets := &mockSheets{}
	logs := &mockLogs{}
	sheets.On("AppendRow", mock.Anything, "sheet-1", mock.Anything).Return(errors.New("quota exceeded"))
	logs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result := newCoordinator(sheets, logs, nil).Dispatch(context.Background(), testTenant(utils.ToPtr("sheet-1")), testFields())

	assert.False(t, result.SheetAppended)
	assert.True(t, result.Persisted)
	var sinkFailure *mwerrors.SinkFailure
	require.True(t, errors.As(result.SheetErr, &sinkFailure))
	assert.Equal(t, mwerrors.SinkSpreadsheet, sinkFailure.Sink)
	logs.AssertNumberOfCalls(t, "Create", 1)
}

func TestDispatch_PersistFailureAfterSheetSuccess(t *testing.T) {
	sheets := &mockSheets{}
	logs := &mockLogs{}
	publisher := &mockPublisher{}
	sheets.On("AppendRow", mock.Anything, "sheet-1", mock.Anything).Return(nil)
	logs.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	result := newCoordinator(sheets, logs, publisher).Dispatch(context.Background(), testTenant(utils.ToPtr("sheet-1")), testFields())

	assert.True(t, result.SheetAppended)
	assert.False(t, result.Persisted)
	var sinkFailure *mwerrors.SinkFailure
	require.True(t, errors.As(result.PersistErr, &sinkFailure))
	assert.Equal(t, mwerrors.SinkPersistence, sinkFailure.Sink)
	publisher.AssertNotCalled(t, "PublishLogRecorded", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_NoSheetSkipsAppend(t *testing.T) {
	sheets := &mockSheets{}
	logs := &mockLogs{}
	logs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result := newCoordinator(sheets, logs, nil).Dispatch(context.Background(), testTenant(nil), testFields())

	assert.True(t, result.SheetSkipped)
	assert.True(t, result.Persisted)
	sheets.AssertNotCalled(t, "AppendRow", mock.Anything, mock.Anything, mock.Anything)

	result = newCoordinator(sheets, logs, nil).Dispatch(context.Background(), testTenant(utils.ToPtr("")), testFields())
	assert.True(t, result.SheetSkipped)
	sheets.AssertNotCalled(t, "AppendRow", mock.Anything, mock.Anything, mock.Anything)
}

type blockingSheets struct{}

func (blockingSheets) AppendRow(ctx context.Context, _ string, _ []interface{}) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatch_SheetTimeoutIsSinkFailure(t *testing.T) {
	logs := &mockLogs{}
	logs.On("Create", mock.Anything, mock.Anything).Return(nil)

	cfg := &config.FanoutConfig{SheetsTimeout: 20 * time.Millisecond, PersistTimeout: time.Second}
	coordinator := NewCoordinator(cfg, logger.NewNopLogger(), blockingSheets{}, logs, nil)

	result := coordinator.Dispatch(context.Background(), testTenant(utils.ToPtr("sheet-1")), testFields())

	assert.ErrorIs(t, result.SheetErr, context.DeadlineExceeded)
	assert.True(t, result.Persisted)
}

func TestDispatch_PublishesAfterPersistence(t *testing.T) {
	sheets := &mockSheets{}
	logs := &mockLogs{}
	publisher := &mockPublisher{}
	logs.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.LogRecord).ID = 9
	}).Return(nil)
	publisher.On("PublishLogRecorded", mock.Anything, "abc12345", mock.MatchedBy(func(e dto.LogRecorded) bool {
		return e.LogRecordID == 9 && e.TenantID == 7 && e.OrderDate == "2024-03-04" && !e.SheetSynced
	})).Return(errors.New("broker down"))

	result := newCoordinator(sheets, logs, publisher).Dispatch(context.Background(), testTenant(nil), testFields())

	assert.True(t, result.OK())
	publisher.AssertExpectations(t)
}

func TestDispatch_PublishHasDeadline(t *testing.T) {
	logs := &mockLogs{}
	publisher := &mockPublisher{}
	logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishLogRecorded", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 50*time.Millisecond
	}), "abc12345", mock.Anything).Return(nil).Once()

	cfg := &config.FanoutConfig{SheetsTimeout: time.Second, PersistTimeout: time.Second, EventsTimeout: 50 * time.Millisecond}
	coordinator := NewCoordinator(cfg, logger.NewNopLogger(), &mockSheets{}, logs, publisher)

	result := coordinator.Dispatch(context.Background(), testTenant(nil), testFields())

	assert.True(t, result.OK())
	publisher.AssertExpectations(t)
}
