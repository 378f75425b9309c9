package utils

import (
	"context"
)

type CustomContext struct {
	AppSource string
	Tenant    string
	AliasKey  string
}

type customContextKeyType string

const customContextKey customContextKeyType = "CUSTOM_CONTEXT"

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetTenantFromContext(ctx context.Context) string {
	return GetContext(ctx).Tenant
}

func GetAliasKeyFromContext(ctx context.Context) string {
	return GetContext(ctx).AliasKey
}

// SetTenantInContext returns a derived context; the parent's CustomContext is not mutated.
func SetTenantInContext(ctx context.Context, tenant string) context.Context {
	customContext := *GetContext(ctx)
	customContext.Tenant = tenant
	return WithCustomContext(ctx, &customContext)
}

func SetAliasKeyInContext(ctx context.Context, aliasKey string) context.Context {
	customContext := *GetContext(ctx)
	customContext.AliasKey = aliasKey
	return WithCustomContext(ctx, &customContext)
}

func SetAppSourceInContext(ctx context.Context, appSource string) context.Context {
	customContext := *GetContext(ctx)
	customContext.AppSource = appSource
	return WithCustomContext(ctx, &customContext)
}
