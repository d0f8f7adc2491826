package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitality-ops/internal/model"
)

func TestFileStorageMissingFileIsNoState(t *testing.T) {
	fs := NewFileStorage(filepath.Join(t.TempDir(), "data.json"))

	_, err := fs.LoadState(context.Background())
	require.ErrorIs(t, err, ErrNoState)
}

func TestFileStorageCorruptFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStorage(path).LoadState(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoState)
}

func TestFileStorageReplaceTenantKeepsOthers(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStorage(filepath.Join(t.TempDir(), "nested", "data.json"))

	a := model.NewTenantData()
	a.AppSettings.TgBotToken = "a"
	b := model.NewTenantData()
	b.AppSettings.TgBotToken = "b"

	require.NoError(t, fs.ReplaceTenant(ctx, "t-a", a))
	require.NoError(t, fs.ReplaceTenant(ctx, "t-b", b))
	require.NoError(t, fs.ReplaceDirectory(ctx, model.Directory{Tenants: []model.Tenant{{ID: "t-a", Name: "A"}}}))

	b2 := b.Clone()
	b2.AppSettings.TgLastUpdateID = 7
	require.NoError(t, fs.ReplaceTenant(ctx, "t-b", b2))

	state, err := fs.LoadState(ctx)
	require.NoError(t, err)
	require.Len(t, state.Tenants, 1)
	assert.Equal(t, "a", state.DataByTenant["t-a"].AppSettings.TgBotToken)
	assert.Equal(t, int64(7), state.DataByTenant["t-b"].AppSettings.TgLastUpdateID)
}

func TestPartitionNameIsStableAndDistinct(t *testing.T) {
	assert.Equal(t, PartitionName("t-demo"), PartitionName("t-demo"))
	assert.NotEqual(t, PartitionName("t-demo"), PartitionName("t_demo"))
	assert.Regexp(t, `^tenant_events_t_demo_[0-9a-f]{8}$`, PartitionName("t-demo"))
}
