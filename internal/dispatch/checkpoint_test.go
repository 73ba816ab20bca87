package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileCheckpoint(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "checkpoint.json")
	cp := NewFileCheckpoint(path, true)

	_, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cp.Save(ctx, 17))
	seq, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(17), seq)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestFileCheckpointDisabled(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	cp := NewFileCheckpoint(path, false)

	require.NoError(t, cp.Save(ctx, 3))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	_, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}
