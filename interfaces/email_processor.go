package interfaces

import (
	"context"

	"github.com/driversheet/mailworker/dto"
	"github.com/driversheet/mailworker/internal/models"
)

type MessageProcessor interface {
	ProcessMessage(ctx context.Context, aliasKey string, raw []byte) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, tenant *models.Tenant, fields *dto.ExtractedFields) dto.FanoutResult
}
