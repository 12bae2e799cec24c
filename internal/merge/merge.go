// Package merge reconciles model replacements against the uploaded project.
package merge

import (
	"sort"

	"repofix/internal/fileset"
	"repofix/internal/reply"
)

// Report describes how the replacements were applied.
type Report struct {
	// Changed lists paths whose content differs from the original.
	Changed []string
	// Unchanged lists paths the model returned verbatim.
	Unchanged []string
	// Dropped lists replacement paths that were not in the upload, sorted.
	Dropped []string
}

// Reconcile returns a FileSet with exactly the original paths in the
// original order. Each path takes its replacement when one exists and its
// original content otherwise. Replacements for unknown paths are dropped:
// the result never contains a file the user did not upload.
func Reconcile(original *fileset.FileSet, repl reply.Replacements) (*fileset.FileSet, Report) {
	out := original.Clone()
	var rep Report
	original.Range(func(path, content string) bool {
		fixed, ok := repl[path]
		if !ok {
			return true
		}
		out.Replace(path, fixed)
		if fixed == content {
			rep.Unchanged = append(rep.Unchanged, path)
		} else {
			rep.Changed = append(rep.Changed, path)
		}
		return true
	})
	for path := range repl {
		if !original.Has(path) {
			rep.Dropped = append(rep.Dropped, path)
		}
	}
	sort.Strings(rep.Dropped)
	return out, rep
}
