package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SafeFS is a read-only view of one directory tree. Lookups follow symlinks
// and fail if they resolve outside the root.
type SafeFS struct {
	absRoot string // absolute root with symlinks resolved
}

// NewSafeFS locks all future operations to the given root directory.
// The root path is resolved to an absolute, symlink-free directory.
func NewSafeFS(root string) (*SafeFS, error) {
	if root == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: root is not a directory")
	}
	return &SafeFS{absRoot: abs}, nil
}

// Root returns the absolute root directory bound to this SafeFS.
func (s *SafeFS) Root() string {
	if s == nil {
		return ""
	}
	return s.absRoot
}

// SafeReadFile reads a file relative to the root.
func (s *SafeFS) SafeReadFile(userPath string) ([]byte, error) {
	p, err := s.resolve(userPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("safeio: path is a directory")
	}
	return os.ReadFile(p)
}

// SafeStat returns metadata for a file or directory under the root.
func (s *SafeFS) SafeStat(userPath string) (fs.FileInfo, error) {
	p, err := s.resolve(userPath)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// SafeReadDir lists entries for a directory relative to the root.
func (s *SafeFS) SafeReadDir(userPath string) ([]fs.DirEntry, error) {
	dir, err := s.resolve(userPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: path is not a directory")
	}
	return os.ReadDir(dir)
}

var (
	_ fs.ReadDirFS  = (*SafeFS)(nil)
	_ fs.ReadFileFS = (*SafeFS)(nil)
	_ fs.StatFS     = (*SafeFS)(nil)
)

// Open implements fs.FS (names use "/" separators). Directories are opened
// too so the tree can be walked.
func (s *SafeFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	p, err := s.resolve(filepath.FromSlash(name))
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return os.Open(p)
}

// ReadDir implements fs.ReadDirFS.
func (s *SafeFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return s.SafeReadDir(filepath.FromSlash(name))
}

// ReadFile implements fs.ReadFileFS.
func (s *SafeFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	return s.SafeReadFile(filepath.FromSlash(name))
}

// Stat implements fs.StatFS.
func (s *SafeFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	return s.SafeStat(filepath.FromSlash(name))
}

// resolve maps a root-relative or absolute path to a real path inside the
// root. Containment is checked after symlinks are evaluated.
func (s *SafeFS) resolve(userPath string) (string, error) {
	if s == nil {
		return "", errors.New("safeio: filesystem not configured")
	}
	if userPath == "" {
		return "", errors.New("safeio: empty path")
	}
	target := filepath.Clean(userPath)
	if !filepath.IsAbs(target) {
		if escapes(target) {
			return "", fmt.Errorf("safeio: %s escapes the root", userPath)
		}
		target = filepath.Join(s.absRoot, target)
	}

	final, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", err
	}
	if !s.contains(final) {
		return "", fmt.Errorf("safeio: %s resolves outside %s", userPath, s.absRoot)
	}
	return final, nil
}

// contains reports whether abs is the root or lies beneath it.
func (s *SafeFS) contains(abs string) bool {
	rel, err := filepath.Rel(s.absRoot, abs)
	if err != nil {
		return false
	}
	return !filepath.IsAbs(rel) && !escapes(rel)
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
