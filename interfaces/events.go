package interfaces

import (
	"context"

	"github.com/driversheet/mailworker/dto"
)

type EventPublisher interface {
	PublishLogRecorded(ctx context.Context, tenant string, event dto.LogRecorded) error
	Close() error
}
