package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFS_LchtimesDoesNotTouchTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	require.NoError(t, os.Symlink(target, link))

	targetBefore, err := os.Stat(target)
	require.NoError(t, err)

	fsys := NewOS()
	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, fsys.Lchtimes(link, when, when))

	linkInfo, err := os.Lstat(link)
	require.NoError(t, err)
	assert.True(t, linkInfo.ModTime().Equal(when))

	targetAfter, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, targetBefore.ModTime(), targetAfter.ModTime())
}

func TestOSFS_CreateRefusesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0644))
	require.NoError(t, os.Symlink(target, link))

	_, err := NewOS().Create(link, 0644)
	assert.Error(t, err)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))
}

func TestOSFS_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOS()

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, fsys.MkdirAll(sub, 0755))

	w, err := fsys.Create(filepath.Join(sub, "f"), 0600)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := fsys.ReadDir(sub)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f", entries[0].Name())

	require.NoError(t, fsys.Symlink(filepath.Join(sub, "f"), filepath.Join(dir, "l")))
	got, err := fsys.Readlink(filepath.Join(dir, "l"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, "f"), got)

	require.NoError(t, fsys.RemoveAll(filepath.Join(dir, "a")))
	_, err = fsys.Lstat(sub)
	assert.True(t, os.IsNotExist(err))
}
