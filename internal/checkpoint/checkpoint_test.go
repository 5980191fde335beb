package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	f, err := Load(filepath.Join(t.TempDir(), "partitions.done"))
	require.NoError(t, err)
	require.False(t, f.Done("a"))
}

func TestMarkDone_PersistsAcrossLoads(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "partitions.done")

	f, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, f.MarkDone("a"))
	require.NoError(t, f.MarkDone("b"))
	require.NoError(t, f.MarkDone("a")) // idempotent
	require.True(t, f.Done("a"))
	require.True(t, f.Done("b"))
	require.False(t, f.Done("c"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, reloaded.Done("a"))
	require.True(t, reloaded.Done("b"))
	require.False(t, reloaded.Done("c"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(raw), "repeat MarkDone must not append again")
}

func TestLoad_IgnoresBlankLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "partitions.done")
	require.NoError(t, os.WriteFile(path, []byte("a\n\n  \nz\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.True(t, f.Done("a"))
	require.True(t, f.Done("z"))
	require.False(t, f.Done(""))
}
