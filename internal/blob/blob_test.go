package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPut(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.NoError(t, err)

	uri, err := l.Put(context.Background(), "export.csv", "text/csv", []byte("a,b\n"))
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(uri))

	data, err := os.ReadFile(uri)
	require.NoError(t, err)
	require.Equal(t, "a,b\n", string(data))
}

func TestLocalPutStripsPathTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.NoError(t, err)

	uri, err := l.Put(context.Background(), "../../escape.csv", "text/csv", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "escape.csv"), uri)
}

func TestNewLocalRequiresDir(t *testing.T) {
	t.Parallel()

	_, err := NewLocal("")
	require.Error(t, err)
}
