package db

import (
	"context"
	"testing"

	"statcard-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/statcard/db",
		DbSchema: Schema,
	})
	defer cleanup()

	store := NewStore(result.DB)
	ctx := context.Background()

	_, err := store.Handle(ctx, 1001)
	require.ErrorIs(t, err, ErrNotRegistered)

	err = store.Register(ctx, 1001, "proplayer1")
	require.NoError(t, err)

	handle, err := store.Handle(ctx, 1001)
	require.NoError(t, err)
	require.Equal(t, "proplayer1", handle)

	// re-registering replaces the stored handle
	err = store.Register(ctx, 1001, "newalias")
	require.NoError(t, err)

	handle, err = store.Handle(ctx, 1001)
	require.NoError(t, err)
	require.Equal(t, "newalias", handle)

	// a second user does not collide
	err = store.Register(ctx, 2002, "proplayer1")
	require.NoError(t, err)

	handle, err = store.Handle(ctx, 2002)
	require.NoError(t, err)
	require.Equal(t, "proplayer1", handle)
}
