package merge

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repofix/internal/fileset"
	"repofix/internal/reply"
)

func contents(fs *fileset.FileSet) map[string]string {
	out := map[string]string{}
	fs.Range(func(p, c string) bool {
		out[p] = c
		return true
	})
	return out
}

func TestReconcileSingleFix(t *testing.T) {
	original := fileset.FromPairs("a.js", "var x=1")
	got, rep := Reconcile(original, reply.ParseReplacements("START_FILE: a.js\nlet x=1;\nEND_FILE"))

	assert.Equal(t, map[string]string{"a.js": "let x=1;"}, contents(got))
	assert.Equal(t, []string{"a.js"}, rep.Changed)
	assert.Empty(t, rep.Dropped)
}

func TestReconcileKeepsUntouchedFiles(t *testing.T) {
	original := fileset.FromPairs("a.js", "ok", "b.js", "bad")
	got, rep := Reconcile(original, reply.Replacements{"b.js": "good"})

	if diff := cmp.Diff([]string{"a.js", "b.js"}, got.Paths()); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]string{"a.js": "ok", "b.js": "good"}, contents(got))
	assert.Equal(t, []string{"b.js"}, rep.Changed)
}

func TestReconcileDropsInventedPaths(t *testing.T) {
	original := fileset.FromPairs("a.js", "a")
	got, rep := Reconcile(original, reply.Replacements{
		"a.js":          "A",
		"new/helper.js": "invented",
		"../escape.sh":  "rm -rf /",
	})

	assert.Equal(t, []string{"a.js"}, got.Paths())
	assert.False(t, got.Has("new/helper.js"))
	assert.Equal(t, []string{"../escape.sh", "new/helper.js"}, rep.Dropped)
}

func TestReconcileReportsVerbatimReplacements(t *testing.T) {
	original := fileset.FromPairs("a.js", "same", "b.js", "old")
	_, rep := Reconcile(original, reply.Replacements{"a.js": "same", "b.js": "new"})
	assert.Equal(t, []string{"a.js"}, rep.Unchanged)
	assert.Equal(t, []string{"b.js"}, rep.Changed)
}

func TestReconcileMissingEndMarkerPassesThrough(t *testing.T) {
	original := fileset.FromPairs("c.js", "let c = 1")
	got, rep := Reconcile(original, reply.ParseReplacements("START_FILE: c.js\nlet c = 2;\n"))
	assert.Equal(t, map[string]string{"c.js": "let c = 1"}, contents(got))
	assert.Empty(t, rep.Changed)
}

func TestReconcileEmptyInputs(t *testing.T) {
	got, rep := Reconcile(fileset.New(), reply.Replacements{"x.js": "x"})
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"x.js"}, rep.Dropped)

	original := fileset.FromPairs("a", "1")
	got, _ = Reconcile(original, nil)
	assert.Equal(t, contents(original), contents(got))
}

// Totality, fixed-or-original and idempotence over random inputs.
func TestReconcileProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		original := fileset.New()
		n := rng.Intn(8)
		for i := 0; i < n; i++ {
			require.NoError(t, original.Add(fmt.Sprintf("f%d.txt", i), fmt.Sprintf("orig-%d", rng.Intn(3))))
		}
		repl := reply.Replacements{}
		for i := 0; i < rng.Intn(10); i++ {
			repl[fmt.Sprintf("f%d.txt", rng.Intn(12))] = fmt.Sprintf("orig-%d", rng.Intn(3))
		}

		once, _ := Reconcile(original, repl)
		twice, _ := Reconcile(once, repl)

		require.Equal(t, original.Paths(), once.Paths())
		require.Equal(t, original.Len(), once.Len())
		original.Range(func(p, c string) bool {
			got, _ := once.Get(p)
			if fixed, ok := repl[p]; ok {
				require.Equal(t, fixed, got)
			} else {
				require.Equal(t, c, got)
			}
			return true
		})
		for p := range repl {
			if !original.Has(p) {
				require.False(t, once.Has(p))
			}
		}
		require.Equal(t, contents(once), contents(twice))
		require.Equal(t, once.Paths(), twice.Paths())
	}
}

func TestReconcileLeavesOriginalUntouched(t *testing.T) {
	original := fileset.FromPairs("a.js", "old", "b.js", "keep")
	got, _ := Reconcile(original, reply.Replacements{"a.js": "new"})

	before, _ := original.Get("a.js")
	after, _ := got.Get("a.js")
	assert.Equal(t, "old", before)
	assert.Equal(t, "new", after)
}
