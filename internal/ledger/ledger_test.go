package ledger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kathir-ks/a2a-ledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	frontend = ledger.Synonyms{"frontend", "front-end", "front end", "ui", "user interface"}
	backend  = ledger.Synonyms{"backend", "back-end", "back end", "server", "api"}
)

const scenario = "## Frontend Tasks\n- [ ] Build login form\n- [x] Set up repo\n## Backend Tasks\n- [ ] Add auth endpoint\n"

func TestScan_Scenario(t *testing.T) {
	doc := ledger.Parse(scenario)

	fe := ledger.Scan(doc, frontend, ledger.DefaultMaxDepth)
	assert.Equal(t, ledger.OutcomePending, fe.Outcome)
	assert.Equal(t, []string{"Build login form"}, fe.Texts())
	assert.Equal(t, 2, fe.Total)
	assert.Equal(t, 1, fe.Completed)

	be := ledger.Scan(doc, backend, ledger.DefaultMaxDepth)
	assert.Equal(t, ledger.OutcomePending, be.Outcome)
	assert.Equal(t, []string{"Add auth endpoint"}, be.Texts())
}

func TestScan_OrderPreservedAndUnrelatedSectionsIgnored(t *testing.T) {
	text := `# Project Tasks

## Setup
- [ ] Install toolchain

## UI
- [ ] First
- [ ] Second
- [x] Done already
- [ ] Third

## Server
- [ ] Not mine
`
	res := ledger.Scan(ledger.Parse(text), frontend, 3)
	assert.Equal(t, []string{"First", "Second", "Third"}, res.Texts())
}

func TestScan_MultiLineTask(t *testing.T) {
	text := "## Frontend\n- [ ] Build the dashboard\n  with charts and filters\n- [ ] Next task\n\n- [ ] After blank\n"
	res := ledger.Scan(ledger.Parse(text), frontend, 3)
	require.Len(t, res.Tasks, 3)
	assert.Equal(t, "Build the dashboard\nwith charts and filters", res.Tasks[0].Text)
	assert.Equal(t, "Next task", res.Tasks[1].Text)
	assert.Equal(t, "After blank", res.Tasks[2].Text)
}

func TestScan_SectionEndsAtShallowerHeading(t *testing.T) {
	text := `## Frontend
- [ ] Top level
### Components
- [ ] Nested one
## Backend
- [ ] Endpoint
`
	doc := ledger.Parse(text)
	res := ledger.Scan(doc, frontend, 3)
	assert.Equal(t, []string{"Top level", "Nested one"}, res.Texts())

	be := ledger.Scan(doc, backend, 3)
	assert.Equal(t, []string{"Endpoint"}, be.Texts())
}

func TestScan_NestedMatchingHeadingNotDoubleCounted(t *testing.T) {
	text := "## Frontend\n- [ ] A\n### UI polish\n- [ ] B\n"
	res := ledger.Scan(ledger.Parse(text), frontend, 3)
	assert.Equal(t, []string{"A", "B"}, res.Texts())
	assert.Equal(t, 2, res.Total)
}

func TestScan_DepthLimit(t *testing.T) {
	text := "#### Frontend\n- [ ] Too deep\n"
	res := ledger.Scan(ledger.Parse(text), frontend, 3)
	assert.Equal(t, ledger.OutcomeNoMatchingSection, res.Outcome)
}

func TestScan_AllComplete(t *testing.T) {
	text := "## Backend\n- [x] One\n- [X] Two\n"
	res := ledger.Scan(ledger.Parse(text), backend, 3)
	assert.Equal(t, ledger.OutcomeAllComplete, res.Outcome)
	assert.Empty(t, res.Tasks)
}

func TestScan_MatchingHeadingWithoutCheckboxes(t *testing.T) {
	text := "## Frontend\nNothing decided yet.\n## Backend\n- [ ] x\n"
	res := ledger.Scan(ledger.Parse(text), frontend, 3)
	assert.Equal(t, ledger.OutcomeNoMatchingSection, res.Outcome)
	assert.NotEqual(t, ledger.OutcomeAllComplete, res.Outcome)
}

func TestScan_NoHeading(t *testing.T) {
	res := ledger.Scan(ledger.Parse("- [ ] orphan\n"), frontend, 3)
	assert.Equal(t, ledger.OutcomeNoMatchingSection, res.Outcome)
}

func TestScan_IgnoresFencedCode(t *testing.T) {
	text := "## Backend\n```\n## Frontend\n- [ ] fake\n```\n- [ ] real\n"
	doc := ledger.Parse(text)
	assert.Equal(t, ledger.OutcomeNoMatchingSection, ledger.Scan(doc, frontend, 3).Outcome)
	assert.Equal(t, []string{"real"}, ledger.Scan(doc, backend, 3).Texts())
}

func TestParse_Idempotent(t *testing.T) {
	first := ledger.Scan(ledger.Parse(scenario), frontend, 3)
	second := ledger.Scan(ledger.Parse(scenario), frontend, 3)
	assert.Equal(t, first.Texts(), second.Texts())
	assert.Equal(t, ledger.Fingerprint(first.Tasks), ledger.Fingerprint(second.Tasks))
}

func TestSynonyms_PrefixMatch(t *testing.T) {
	cases := []struct {
		m     ledger.Synonyms
		title string
		want  bool
	}{
		{backend, "API Endpoints", true},
		{backend, "APIs", true},
		{backend, "Servers", true},
		{backend, "Back-end Tasks", true},
		{backend, "Backend", true},
		{backend, "  server", true},
		{frontend, "1. User Interface", true},
		{frontend, "User Interfaces", true},
		{frontend, "UI Components", true},
		{frontend, "Units", false},
		{backend, "Database", false},
		{backend, "Project Overview", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.m.Match(tc.title), tc.title)
	}
}

func TestScan_CommonHeadingVariants(t *testing.T) {
	cases := []struct {
		name string
		m    ledger.Synonyms
		doc  string
		want []string
	}{
		{"plural api", backend, "## APIs\n- [ ] Add auth endpoint\n", []string{"Add auth endpoint"}},
		{"plural server", backend, "## Servers\n- [ ] Add auth endpoint\n", []string{"Add auth endpoint"}},
		{"plural interface", frontend, "## User Interfaces\n- [ ] Build login form\n", []string{"Build login form"}},
		{"no space after bracket", backend, "## Backend Tasks\n- [ ]Add auth endpoint\n", []string{"Add auth endpoint"}},
		{"checked without space", backend, "## Backend Tasks\n- [x]Done\n- [ ]Next\n", []string{"Next"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ledger.Scan(ledger.Parse(tc.doc), tc.m, 3)
			assert.Equal(t, ledger.OutcomePending, res.Outcome)
			assert.Equal(t, tc.want, res.Texts())
		})
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := ledger.Parse("## UI\n- [ ] one\n- [ ] two\n")
	b := ledger.Parse("## UI\n- [ ] two\n- [ ] one\n")
	assert.Equal(t, ledger.Fingerprint(a.Tasks), ledger.Fingerprint(b.Tasks))

	c := ledger.Parse("## UI\n- [ ] one\n- [x] two\n")
	fa := ledger.Scan(a, frontend, 3)
	fc := ledger.Scan(c, frontend, 3)
	assert.NotEqual(t, ledger.Fingerprint(fa.Tasks), ledger.Fingerprint(fc.Tasks))
	assert.Empty(t, ledger.Fingerprint(nil))
}

func TestStats_AndNextIncomplete(t *testing.T) {
	text := `# Project Tasks
## Setup
- [x] a
## Frontend
- [x] b
- [ ] c
### Widgets
- [ ] d
## Backend
- [ ] e
`
	doc := ledger.Parse(text)
	stats := doc.Stats()
	require.Len(t, stats, 5)
	assert.Equal(t, ledger.SectionStats{Title: "Setup", Depth: 2, Completed: 1, Total: 1}, stats[1])
	assert.Equal(t, ledger.SectionStats{Title: "Frontend", Depth: 2, Completed: 1, Total: 2}, stats[2])
	assert.Equal(t, ledger.SectionStats{Title: "Widgets", Depth: 3, Completed: 0, Total: 1}, stats[3])

	next, ok := doc.NextIncomplete()
	require.True(t, ok)
	assert.Equal(t, "Frontend", next.Title)

	done, total := doc.Totals()
	assert.Equal(t, 2, done)
	assert.Equal(t, 5, total)
}

func TestScanFile_DocumentError(t *testing.T) {
	res := ledger.ScanFile(filepath.Join(t.TempDir(), "missing.md"), frontend, 3)
	assert.Equal(t, ledger.OutcomeDocumentError, res.Outcome)
	assert.ErrorIs(t, res.Err, ledger.ErrDocument)
}

func TestScanFile_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o644))

	res := ledger.ScanFile(path, backend, 3)
	assert.Equal(t, []string{"Add auth endpoint"}, res.Texts())
}

func TestEnsureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project", "plan.md")

	created, err := ledger.EnsureFile(path, ledger.DefaultPlanContent)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, os.WriteFile(path, []byte("# Edited\n"), 0o644))
	created, err = ledger.EnsureFile(path, ledger.DefaultPlanContent)
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Edited\n", string(data))
	assert.True(t, ledger.Exists(path))
}
