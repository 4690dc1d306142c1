// Package requestctx stores per-request correlation data and the verified
// caller identity on a context.Context.
package requestctx

import (
	"context"

	"github.com/Egor213/JewelCRM/internal/domain"
)

type ctxKey int

const (
	infoKey ctxKey = iota
	identityKey
)

func WithInfo(ctx context.Context, info domain.RequestInfo) context.Context {
	return context.WithValue(ctx, infoKey, info)
}

func Info(ctx context.Context) (domain.RequestInfo, bool) {
	if ctx == nil {
		return domain.RequestInfo{}, false
	}
	info, ok := ctx.Value(infoKey).(domain.RequestInfo)
	return info, ok
}

// WithIdentity attaches a verified identity. The request info, when present,
// is updated so downstream logs carry the verified user id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	if info, ok := Info(ctx); ok {
		info.UserID = id.UserID
		if id.SessionID != "" {
			info.SessionID = id.SessionID
		}
		info.Verified = true
		ctx = WithInfo(ctx, info)
	}
	return ctx
}

func Identity(ctx context.Context) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok
}
