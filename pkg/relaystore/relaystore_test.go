package relaystore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nous-sync/nse/pkg/errs"
	"github.com/nous-sync/nse/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(&Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(dir, "relay.db")},
	})
	require.NoError(t, err)
	return s
}

func TestRegisterAndGetDevice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &models.Device{DeviceID: "device-1", Namespace: "ns-1", Platform: models.PlatformIOS}
	require.NoError(t, s.RegisterDevice(ctx, d))

	got, err := s.GetDevice(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "ns-1", got.Namespace)
}

func TestRegisterDeviceDuplicateRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &models.Device{DeviceID: "device-1", Namespace: "ns-1"}
	require.NoError(t, s.RegisterDevice(ctx, d))

	err := s.RegisterDevice(ctx, &models.Device{DeviceID: "device-1", Namespace: "ns-1"})
	assert.ErrorIs(t, err, ErrDeviceExists)
}

func TestAcquireLockExclusivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireLock(ctx, "ns-1", "device-a")
	require.NoError(t, err)

	_, err = s.AcquireLock(ctx, "ns-1", "device-b")
	require.Error(t, err)
	assert.True(t, errs.IsLockHeldError(err))
}

func TestAcquireLockReentrantForSameHolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireLock(ctx, "ns-1", "device-a")
	require.NoError(t, err)
	_, err = s.AcquireLock(ctx, "ns-1", "device-a")
	assert.NoError(t, err)
}

func TestReleaseLockWrongHolderFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireLock(ctx, "ns-1", "device-a")
	require.NoError(t, err)

	err = s.ReleaseLock(ctx, "ns-1", "device-b")
	require.Error(t, err)
	assert.True(t, errs.IsLockExpiredError(err))
}

func TestReleaseLockThenReacquireByOther(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AcquireLock(ctx, "ns-1", "device-a")
	require.NoError(t, err)
	require.NoError(t, s.ReleaseLock(ctx, "ns-1", "device-a"))

	_, err = s.AcquireLock(ctx, "ns-1", "device-b")
	assert.NoError(t, err)
}

func TestPushAndPullChangeSets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	nodeID := models.NewID()
	cs := &models.ChangeSet{
		NodeID:    nodeID,
		Namespace: "ns-1",
		DeviceID:  "device-a",
		Changes:   models.ChangeList{{Field: "content.title", NewValue: "hi"}},
	}

	_, err := s.PushChangeSet(ctx, cs, models.JSONMap{"content.title": "hi"}, models.Vector{"device-a": 1}, "device-a")
	require.NoError(t, err)

	results, cursor, err := s.PullChangeSets(ctx, "ns-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, cursor, results[0].Cursor)

	node, err := s.GetNode(ctx, nodeID.String())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, node.Status)
}

func TestPullChangeSetsRespectsCursor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	nodeID := models.NewID()
	for i := 0; i < 3; i++ {
		cs := &models.ChangeSet{NodeID: nodeID, Namespace: "ns-1", DeviceID: "d"}
		_, err := s.PushChangeSet(ctx, cs, models.JSONMap{}, models.Vector{}, "d")
		require.NoError(t, err)
	}

	all, _, err := s.PullChangeSets(ctx, "ns-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	rest, _, err := s.PullChangeSets(ctx, "ns-1", all[0].Cursor, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestKeyVersionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateKeyVersion(ctx, &models.KeyVersion{
		Version: 1, Namespace: "ns-1", Status: models.KeyVersionActive,
	}))

	active, err := s.GetActiveKeyVersion(ctx, "ns-1")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), active.Version)

	require.NoError(t, s.UpdateKeyVersionStatus(ctx, "ns-1", 1, models.KeyVersionDeprecated))
	_, err = s.GetActiveKeyVersion(ctx, "ns-1")
	assert.ErrorIs(t, err, ErrKeyVersionNotFound)
}
