package requestctx_test

import (
	"context"
	"testing"

	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithIdentityPromotesRequestInfo(t *testing.T) {
	ctx := requestctx.WithInfo(context.Background(), domain.RequestInfo{
		RequestID: "req-1",
		UserID:    "hinted",
		SessionID: "sess-hint",
	})

	ctx = requestctx.WithIdentity(ctx, domain.Identity{UserID: "u-42", Role: domain.RoleSales})

	info, ok := requestctx.Info(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", info.RequestID)
	assert.Equal(t, "u-42", info.UserID)
	assert.Equal(t, "sess-hint", info.SessionID)
	assert.True(t, info.Verified)

	id, ok := requestctx.Identity(ctx)
	require.True(t, ok)
	assert.Equal(t, domain.RoleSales, id.Role)
}

func TestEmptyContext(t *testing.T) {
	_, ok := requestctx.Info(context.Background())
	assert.False(t, ok)

	_, ok = requestctx.Identity(context.Background())
	assert.False(t, ok)
}
