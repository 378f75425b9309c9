package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContext_DerivedValuesDoNotLeakToParent(t *testing.T) {
	parent := SetAppSourceInContext(context.Background(), "smtp")
	child := SetAliasKeyInContext(SetTenantInContext(parent, "7"), "ab12cd34")

	assert.Equal(t, "smtp", GetAppSourceFromContext(child))
	assert.Equal(t, "7", GetTenantFromContext(child))
	assert.Equal(t, "ab12cd34", GetAliasKeyFromContext(child))

	assert.Empty(t, GetTenantFromContext(parent))
	assert.Empty(t, GetAliasKeyFromContext(parent))
}

func TestGetContext_Empty(t *testing.T) {
	assert.NotNil(t, GetContext(context.Background()))
	assert.Empty(t, GetTenantFromContext(context.Background()))
}

func TestGetOrDefault(t *testing.T) {
	assert.Equal(t, 1.5, GetOrDefault(ToPtr(1.5), 0))
	assert.Equal(t, 0.0, GetOrDefault[float64](nil, 0))
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	unbounded, cancelUnbounded := WithTimeout(context.Background(), 0)
	_, ok = unbounded.Deadline()
	assert.False(t, ok)
	cancelUnbounded()
	assert.ErrorIs(t, unbounded.Err(), context.Canceled)
}
