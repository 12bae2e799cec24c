package fileset

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidPath   = errors.New("fileset: invalid path")
	ErrDuplicatePath = errors.New("fileset: duplicate path")
	ErrNotUTF8       = errors.New("fileset: content is not valid UTF-8")
)

// FileSet is an ordered path -> content mapping. Iteration follows insertion
// order and every path appears at most once.
type FileSet struct {
	order []string
	files map[string]string
}

func New() *FileSet {
	return &FileSet{files: make(map[string]string)}
}

// FromPairs builds a FileSet from alternating path, content arguments.
// It panics on bad input and is meant for tests and fixtures.
func FromPairs(pairs ...string) *FileSet {
	if len(pairs)%2 != 0 {
		panic("fileset: odd number of arguments to FromPairs")
	}
	fs := New()
	for i := 0; i < len(pairs); i += 2 {
		if err := fs.Add(pairs[i], pairs[i+1]); err != nil {
			panic(err)
		}
	}
	return fs
}

// Add appends a new entry. The path must pass ValidatePath and must not be
// present yet.
func (s *FileSet) Add(p, content string) error {
	if err := ValidatePath(p); err != nil {
		return err
	}
	if _, ok := s.files[p]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, p)
	}
	s.order = append(s.order, p)
	s.files[p] = content
	return nil
}

// AddBytes decodes raw as UTF-8 text and adds it.
func (s *FileSet) AddBytes(p string, raw []byte) error {
	if !utf8.Valid(raw) {
		return fmt.Errorf("%w: %s", ErrNotUTF8, p)
	}
	return s.Add(p, string(raw))
}

func (s *FileSet) Get(p string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.files[p]
	return v, ok
}

func (s *FileSet) Has(p string) bool {
	_, ok := s.Get(p)
	return ok
}

func (s *FileSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Paths returns a copy of the paths in insertion order.
func (s *FileSet) Paths() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Range calls fn for every entry in insertion order until fn returns false.
func (s *FileSet) Range(fn func(path, content string) bool) {
	if s == nil {
		return
	}
	for _, p := range s.order {
		if !fn(p, s.files[p]) {
			return
		}
	}
}

// Clone returns an independent copy with the same order.
func (s *FileSet) Clone() *FileSet {
	out := New()
	s.Range(func(p, content string) bool {
		out.order = append(out.order, p)
		out.files[p] = content
		return true
	})
	return out
}

// Replace swaps the content of an existing path and reports whether the
// path was present. Unknown paths are left out.
func (s *FileSet) Replace(p, content string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.files[p]; !ok {
		return false
	}
	s.files[p] = content
	return true
}

// TotalBytes is the summed length of all contents.
func (s *FileSet) TotalBytes() int {
	n := 0
	s.Range(func(_, content string) bool {
		n += len(content)
		return true
	})
	return n
}

// ValidatePath accepts project-relative slash paths to regular files. Empty,
// "." and ".." segments are rejected, which also rules out trailing slashes.
func ValidatePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") || strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	if len(p) >= 2 && p[1] == ':' {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "..":
			return fmt.Errorf("%w: %q escapes the project", ErrInvalidPath, p)
		case "", ".":
			return fmt.Errorf("%w: %q is not a clean file path", ErrInvalidPath, p)
		}
	}
	return nil
}
