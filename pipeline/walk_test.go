package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestListPhotos(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.jpg"))
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "sub", "c.png"))
	touch(t, filepath.Join(dir, ".hidden.jpg"))
	touch(t, filepath.Join(dir, ".cache", "d.jpg"))
	touch(t, filepath.Join(dir, "@eaDir", "thumb.jpg"))

	paths, err := ListPhotos(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "sub", "c.png"),
	}, paths)
}

func TestListPhotosMissingDir(t *testing.T) {
	_, err := ListPhotos(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
