package services

import (
	"context"
	"testing"

	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateDeviceID_Stable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.svc.Device.GetOrCreateDeviceID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := env.svc.Device.GetOrCreateDeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestRegister_MirrorsRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.svc.Device.Register(ctx, "till-3", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "till-3", record.Name)

	mirrored, err := env.svc.Device.Record(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.ID, mirrored.ID)
}

func TestRegister_NoMirrorOnRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.remote.registerErr = common.ErrUnavailable

	_, err := env.svc.Device.Register(ctx, "till-3", "u-1")
	assert.ErrorIs(t, err, common.ErrUnavailable)

	_, err = env.svc.Device.Record(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStatus_RefreshesMirror(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.svc.Device.GetOrCreateDeviceID(ctx)
	require.NoError(t, err)

	status, err := env.svc.Device.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, status.Device.ID)

	mirrored, err := env.svc.Device.Record(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, mirrored.ID)
}

func TestRevoke_WipesLocalState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.svc.Device.GetOrCreateDeviceID(ctx)
	require.NoError(t, err)
	env.enqueueCount(t)

	require.NoError(t, env.svc.Device.Revoke(ctx))

	assert.Equal(t, []string{id}, env.remote.revokedIDs)

	items, err := env.svc.Actions(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = env.store.DeviceID(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRevoke_WipesEvenWhenRemoteUnreachable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Device.GetOrCreateDeviceID(ctx)
	require.NoError(t, err)
	env.enqueueCount(t)
	env.remote.revokeErr = common.ErrUnavailable

	require.NoError(t, env.svc.Device.Revoke(ctx))

	items, err := env.svc.Actions(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = env.store.DeviceID(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
