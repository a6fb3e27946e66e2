package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/dataset-labeller/pkg/types"
)

func TestNormalizePath(t *testing.T) {
	dir := t.TempDir()
	p := NormalizePath(filepath.Join(dir, "a", "..", "b.jpg"))
	require.True(t, filepath.IsAbs(filepath.FromSlash(p)))
	require.NotContains(t, p, "\\")
	require.NotContains(t, p, "..")
	require.Equal(t, p, NormalizePath(p))
}

func TestBaseNameAndImageFile(t *testing.T) {
	require.Equal(t, "photo.v2", BaseName("/x/y/photo.v2.JPG"))
	require.True(t, IsImageFile("a.JPEG"))
	require.True(t, IsImageFile("a.png"))
	require.False(t, IsImageFile("a.webp"))
	require.False(t, IsImageFile("a.txt"))
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "c.txt", "d.gif"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "e.jpg"), 0o755))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		NormalizePath(filepath.Join(dir, "a.JPG")),
		NormalizePath(filepath.Join(dir, "b.png")),
	}, files)

	files, err = ListImageFiles(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.NotNil(t, files)
	require.Empty(t, files)
}

func TestListImageFilesSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "._a.jpg", ".jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	require.Equal(t, []string{NormalizePath(filepath.Join(dir, "a.jpg"))}, files)
}

func TestExistenceChecks(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	full := filepath.Join(dir, "full.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))

	require.True(t, FileExists(empty))
	require.False(t, FileExists(dir))
	require.False(t, NonEmptyFileExists(empty))
	require.True(t, NonEmptyFileExists(full))
	require.True(t, DirExists(dir))
	require.False(t, DirExists(full))
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	require.NoError(t, MoveFile(src, dst))
	require.NoFileExists(t, src)
	require.FileExists(t, dst)

	err := MoveFile(src, dst)
	require.ErrorIs(t, err, types.ErrIO)
}

func TestCopyFilePreservesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))
	old := time.Date(2019, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, old, old))

	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	st, err := os.Stat(dst)
	require.NoError(t, err)
	require.True(t, st.ModTime().Equal(old))

	err = CopyFile(filepath.Join(dir, "missing"), dst)
	require.ErrorIs(t, err, types.ErrIO)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "labels.txt")
	require.NoError(t, WriteFileAtomic(p, []byte("one")))
	require.NoError(t, WriteFileAtomic(p, []byte("two")))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	err = WriteFileAtomic(filepath.Join(dir, "missing", "x.txt"), nil)
	require.ErrorIs(t, err, types.ErrIO)
}

func TestIsBareFilename(t *testing.T) {
	require.True(t, IsBareFilename("a.jpg"))
	require.False(t, IsBareFilename(""))
	require.False(t, IsBareFilename(".."))
	require.False(t, IsBareFilename("../a.jpg"))
	require.False(t, IsBareFilename(`sub\a.jpg`))
}
