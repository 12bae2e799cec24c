package reply

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrap(path, content string) string {
	return "START_FILE: " + path + "\n" + content + "\nEND_FILE\n"
}

func TestParseSingleBlock(t *testing.T) {
	got := ParseReplacements("START_FILE: a.js\nlet x=1;\nEND_FILE")
	assert.Equal(t, Replacements{"a.js": "let x=1;"}, got)
}

func TestParseRoundTrip(t *testing.T) {
	want := Replacements{}
	var sb strings.Builder
	sb.WriteString("Sure! Here are the fixed files.\n\n")
	for i := 0; i < 12; i++ {
		path := fmt.Sprintf("pkg/dir%d/file%d.go", i%3, i)
		content := fmt.Sprintf("package dir%d\n\nfunc F%d() int {\n\treturn %d\n}", i%3, i, i)
		want[path] = content
		sb.WriteString(wrap(path, content))
		sb.WriteString("\n")
	}
	sb.WriteString("Let me know if you need anything else.")

	res := Parse(sb.String())
	assert.Len(t, res.Blocks, 12)
	assert.Empty(t, res.Skipped())
	assert.Equal(t, want, res.Replacements())
}

func TestParseIgnoresPreamble(t *testing.T) {
	text := "Notes:\nsomething END_FILE something\n" + wrap("b.js", "fixed")
	res := Parse(text)
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, Replacements{"b.js": "fixed"}, res.Replacements())
}

func TestParseNoMarkers(t *testing.T) {
	res := Parse("I could not find any bugs.\nEND_FILE")
	assert.Empty(t, res.Blocks)
	assert.Empty(t, res.Replacements())
	assert.Empty(t, Parse("").Replacements())
}

func TestParseMissingEndMarkerIsIsolated(t *testing.T) {
	text := wrap("a.js", "A") +
		"START_FILE: c.js\nconsole.log('never closed')\n" +
		wrap("d.js", "D")
	res := Parse(text)

	require.Len(t, res.Blocks, 3)
	assert.Equal(t, SkippedNoEnd, res.Blocks[1].Outcome)
	assert.Equal(t, "c.js", res.Blocks[1].Path)
	assert.Equal(t, Replacements{"a.js": "A", "d.js": "D"}, res.Replacements())
}

func TestParseMissingEndMarkerAtTail(t *testing.T) {
	res := Parse(wrap("a.js", "A") + "START_FILE: c.js\nlet c;\n")
	assert.Equal(t, Replacements{"a.js": "A"}, res.Replacements())
	skipped := res.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "c.js", skipped[0].Path)
	assert.Equal(t, "missing_end_marker", skipped[0].Outcome.String())
}

func TestParseUsesLastEndMarker(t *testing.T) {
	content := "const s = \"END_FILE\";\n// END_FILE in a comment"
	got := ParseReplacements(wrap("marker.js", content))
	assert.Equal(t, content, got["marker.js"])
}

func TestParseRepeatedPathLastWins(t *testing.T) {
	got := ParseReplacements(wrap("a.js", "first") + wrap("a.js", "second"))
	assert.Equal(t, Replacements{"a.js": "second"}, got)
}

func TestParseSkipsHeaderWithoutBody(t *testing.T) {
	res := Parse(wrap("a.js", "A") + "START_FILE: lonely.js")
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, SkippedNoBody, res.Blocks[1].Outcome)
	assert.Equal(t, Replacements{"a.js": "A"}, res.Replacements())
}

func TestParseSkipsEmptyPath(t *testing.T) {
	res := Parse("START_FILE:   \nbody\nEND_FILE\n" + wrap("a.js", "A"))
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, SkippedEmptyPath, res.Blocks[0].Outcome)
	assert.Equal(t, Replacements{"a.js": "A"}, res.Replacements())
}

func TestParseIgnoresWhitespaceFragments(t *testing.T) {
	res := Parse("START_FILE: \n\n  START_FILE: " + "a.js\nA\nEND_FILE")
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, Replacements{"a.js": "A"}, res.Replacements())
}

func TestParseTrimsPathAndContent(t *testing.T) {
	text := "START_FILE:  src/app.py \r\n\n\n  def main():\n    pass\n\n\nEND_FILE"
	got := ParseReplacements(text)
	assert.Equal(t, Replacements{"src/app.py": "def main():\n    pass"}, got)
}

func TestParseEmptyContent(t *testing.T) {
	got := ParseReplacements("START_FILE: empty.txt\nEND_FILE")
	content, ok := got["empty.txt"]
	assert.True(t, ok)
	assert.Equal(t, "", content)
}
