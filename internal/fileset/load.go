package fileset

import (
	"fmt"
	"io/fs"
	"strings"
	"unicode/utf8"
)

type LoadOptions struct {
	// IncludeHidden keeps dot-files and dot-directories (.git, .env, ...).
	IncludeHidden bool
	// SkipBinary drops files that are not valid UTF-8 instead of failing.
	SkipBinary bool
	// MaxFileBytes skips files larger than this; zero means no limit.
	MaxFileBytes int64
}

// LoadReport lists what LoadDir left out.
type LoadReport struct {
	SkippedBinary []string
	SkippedLarge  []string
}

// LoadDir walks fsys from its root and collects every regular file in walk
// order (lexical per directory).
func LoadDir(fsys fs.FS, opts LoadOptions) (*FileSet, LoadReport, error) {
	out := New()
	var report LoadReport
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if !opts.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if opts.MaxFileBytes > 0 {
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Size() > opts.MaxFileBytes {
				report.SkippedLarge = append(report.SkippedLarge, p)
				return nil
			}
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if !utf8.Valid(raw) {
			if opts.SkipBinary {
				report.SkippedBinary = append(report.SkippedBinary, p)
				return nil
			}
			return fmt.Errorf("%w: %s", ErrNotUTF8, p)
		}
		return out.Add(p, string(raw))
	})
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}
