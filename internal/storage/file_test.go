package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReadMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "resenas.json"))

	_, err := f.Read(context.Background())
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestFileWriteRead(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "resenas.json")
	f := NewFile(path)

	require.NoError(t, f.Write(ctx, []byte(`[{"id":1}]`)))
	require.NoError(t, f.Write(ctx, []byte(`[]`)))

	got, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not linger")
}

func TestFileWriteFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "resenas.json")
	f := NewFile(path)
	require.NoError(t, f.Write(ctx, []byte(`[{"id":1}]`)))

	// a directory where the temp file should go makes the write fail
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path+".tmp", "x"), []byte("x"), 0o644))

	assert.Error(t, f.Write(ctx, []byte(`[]`)))

	got, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(got))
}

func TestFileCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFile(filepath.Join(t.TempDir(), "resenas.json"))
	assert.ErrorIs(t, f.Write(ctx, []byte(`[]`)), context.Canceled)
}
