package httpapi

import (
	"context"

	"ragkeeper/internal/model"
)

type ctxKey string

const principalKey ctxKey = "rk.principal"

// WithPrincipal stores the authenticated principal in the request context.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx fetches the principal from the request context.
func PrincipalFromCtx(ctx context.Context) (model.Principal, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}
