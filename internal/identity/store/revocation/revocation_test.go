package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryList_RevokeAndCheck(t *testing.T) {
	list := NewInMemory()
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryList_ExpiredEntryNoLongerRevoked(t *testing.T) {
	list := NewInMemory()
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-short", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	revoked, err := list.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation lapses with the token's own expiry")
}
