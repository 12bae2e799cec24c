// Package reply decodes the model's START_FILE/END_FILE text protocol into
// per-file replacements.
//
// The grammar is
//
//	START_FILE: <relative/path>
//	<file content>
//	END_FILE
//
// repeated any number of times with arbitrary text around the blocks.
// Malformed blocks never fail the parse; they are reported as skipped.
package reply

import (
	"strings"

	"repofix/internal/prompt"
)

// Outcome tags what happened to one block of the reply.
type Outcome int

const (
	Parsed Outcome = iota
	// SkippedNoBody: the header line is the whole fragment.
	SkippedNoBody
	// SkippedEmptyPath: the header line is blank.
	SkippedEmptyPath
	// SkippedNoEnd: END_FILE is missing after the header.
	SkippedNoEnd
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case SkippedNoBody:
		return "no_body"
	case SkippedEmptyPath:
		return "empty_path"
	case SkippedNoEnd:
		return "missing_end_marker"
	default:
		return "unknown"
	}
}

// Block is one START_FILE fragment and what the parser made of it.
// Content is only meaningful when Outcome is Parsed.
type Block struct {
	Index   int
	Path    string
	Content string
	Outcome Outcome
}

func (b Block) Skipped() bool { return b.Outcome != Parsed }

// Result holds every non-blank block in reply order.
type Result struct {
	Blocks []Block
}

// Replacements maps path -> replacement content. When a path is repeated
// the later block wins.
type Replacements map[string]string

// Parse splits text on the start marker and classifies each fragment.
// Text before the first marker is ignored.
func Parse(text string) Result {
	fragments := strings.Split(text, prompt.StartMarker)
	var res Result
	for i, frag := range fragments[1:] {
		if strings.TrimSpace(frag) == "" {
			continue
		}
		res.Blocks = append(res.Blocks, parseBlock(i, frag))
	}
	return res
}

func parseBlock(index int, frag string) Block {
	b := Block{Index: index}
	header, body, ok := strings.Cut(frag, "\n")
	b.Path = strings.TrimSpace(header)
	if !ok {
		b.Outcome = SkippedNoBody
		return b
	}
	if b.Path == "" {
		b.Outcome = SkippedEmptyPath
		return b
	}
	end := strings.LastIndex(body, prompt.EndMarker)
	if end < 0 {
		b.Outcome = SkippedNoEnd
		return b
	}
	b.Content = strings.TrimSpace(body[:end])
	b.Outcome = Parsed
	return b
}

// Replacements collects the parsed blocks.
func (r Result) Replacements() Replacements {
	out := make(Replacements)
	for _, b := range r.Blocks {
		if b.Outcome == Parsed {
			out[b.Path] = b.Content
		}
	}
	return out
}

// Skipped returns the blocks that did not yield a replacement.
func (r Result) Skipped() []Block {
	var out []Block
	for _, b := range r.Blocks {
		if b.Skipped() {
			out = append(out, b)
		}
	}
	return out
}

// ParseReplacements is Parse(text).Replacements().
func ParseReplacements(text string) Replacements {
	return Parse(text).Replacements()
}
