package tempfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreate_BootstrapsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tmp")

	f, err := Create(dir, "upload-*")
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	_, err = f.WriteString("hello")
	require.NoError(t, err)

	rel, err := filepath.Rel(dir, f.Name())
	require.NoError(t, err)
	require.NotContains(t, rel, "..")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestCreate_BadDirectory(t *testing.T) {
	// A file where the directory should be makes MkdirAll fail.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := Create(filepath.Join(blocker, "tmp"), "upload-*")
	require.Error(t, err)
}
