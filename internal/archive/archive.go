// Package archive packs a FileSet into a deflate-compressed zip stream.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"

	"repofix/internal/fileset"
)

const (
	ContentType = "application/zip"
	// DefaultFilename is the download name offered to the client.
	DefaultFilename = "fixed_repo.zip"
)

// EncodingError reports an entry whose name or content is not valid UTF-8.
// It aborts the whole archive.
type EncodingError struct {
	Path  string
	Field string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("archive: %s of %q is not valid UTF-8", e.Field, e.Path)
}

// Options tunes archive output.
type Options struct {
	// Modified is stamped on every entry. Zero means time.Now().
	Modified time.Time
}

// Write streams files into w as a zip archive, one entry per path in
// FileSet order. All entries are validated before anything is written.
func Write(w io.Writer, files *fileset.FileSet, opts Options) error {
	if err := validate(files); err != nil {
		return err
	}
	mod := opts.Modified
	if mod.IsZero() {
		mod = time.Now()
	}

	zw := zip.NewWriter(w)
	var werr error
	files.Range(func(path, content string) bool {
		hdr := &zip.FileHeader{
			Name:     path,
			Method:   zip.Deflate,
			Modified: mod,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			werr = fmt.Errorf("create entry %s: %w", path, err)
			return false
		}
		if _, err := io.WriteString(fw, content); err != nil {
			werr = fmt.Errorf("write entry %s: %w", path, err)
			return false
		}
		return true
	})
	if werr != nil {
		_ = zw.Close()
		return werr
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// Bytes is Write into memory.
func Bytes(files *fileset.FileSet, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, files, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validate(files *fileset.FileSet) error {
	var err error
	files.Range(func(path, content string) bool {
		switch {
		case !utf8.ValidString(path):
			err = &EncodingError{Path: path, Field: "name"}
		case !utf8.ValidString(content):
			err = &EncodingError{Path: path, Field: "content"}
		}
		return err == nil
	})
	return err
}
