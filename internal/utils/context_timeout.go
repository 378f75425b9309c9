package utils

import (
	"context"
	"time"
)

// WithTimeout bounds ctx by timeout. A non-positive timeout only adds cancellation.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
