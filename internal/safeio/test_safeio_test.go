package safeio

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repofix/internal/fileset"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func TestSafeFSAllowsAbsoluteUnderRoot(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "hello"})
	sfs, err := NewSafeFS(dir)
	require.NoError(t, err)

	got, err := sfs.SafeReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestSafeFSRejectsTraversal(t *testing.T) {
	parent := writeTree(t, map[string]string{"secret.txt": "s", "root/a.txt": "a"})
	sfs, err := NewSafeFS(filepath.Join(parent, "root"))
	require.NoError(t, err)

	_, err = sfs.SafeReadFile("../secret.txt")
	assert.Error(t, err)
	_, err = sfs.SafeReadFile(filepath.Join(parent, "secret.txt"))
	assert.Error(t, err)
	_, err = sfs.Open("../secret.txt")
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestSafeFSRejectsSiblingWithSharedPrefix(t *testing.T) {
	parent := writeTree(t, map[string]string{"root/a.txt": "a", "root2/b.txt": "b", "root/..cache/c.txt": "c"})
	sfs, err := NewSafeFS(filepath.Join(parent, "root"))
	require.NoError(t, err)

	_, err = sfs.SafeReadFile(filepath.Join(parent, "root2", "b.txt"))
	assert.Error(t, err)
	_, err = sfs.SafeReadFile(filepath.Join("..", "root2", "b.txt"))
	assert.Error(t, err)

	got, err := sfs.SafeReadFile(filepath.Join("..cache", "c.txt"))
	require.NoError(t, err, "dot-dot prefixed names are ordinary entries")
	assert.Equal(t, "c", string(got))

	info, err := sfs.SafeStat(".")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSafeFSRejectsEscapingSymlink(t *testing.T) {
	parent := writeTree(t, map[string]string{"secret.txt": "s", "root/a.txt": "a"})
	root := filepath.Join(parent, "root")
	if err := os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	sfs, err := NewSafeFS(root)
	require.NoError(t, err)

	_, err = sfs.ReadFile("link.txt")
	assert.Error(t, err)
}

func TestSafeFSRootMustBeDirectory(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.txt": "a"})
	_, err := NewSafeFS(filepath.Join(dir, "a.txt"))
	assert.Error(t, err)
	_, err = NewSafeFS("")
	assert.Error(t, err)
}

func TestSafeFSWalksIntoFileSet(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.go":         "package main",
		"pkg/util.go":     "package pkg",
		".git/HEAD":       "ref",
		"assets/logo.bin": "\xff\xd8\xff",
	})
	sfs, err := NewSafeFS(dir)
	require.NoError(t, err)

	files, report, err := fileset.LoadDir(sfs, fileset.LoadOptions{SkipBinary: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/util.go"}, files.Paths())
	assert.Equal(t, []string{"assets/logo.bin"}, report.SkippedBinary)
}
