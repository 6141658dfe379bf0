// internal/ledger/scan.go
package ledger

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxDepth is the deepest heading level considered for role matching.
const DefaultMaxDepth = 3

// ErrDocument is wrapped into Result.Err when the ledger cannot be read.
var ErrDocument = errors.New("ledger document error")

// Outcome classifies a scan.
type Outcome int

const (
	// OutcomePending: at least one unchecked task under a matching section.
	OutcomePending Outcome = iota
	// OutcomeAllComplete: matching sections hold tasks and all are checked.
	OutcomeAllComplete
	// OutcomeNoMatchingSection: no matching heading, or matching headings
	// without a single checkbox.
	OutcomeNoMatchingSection
	// OutcomeDocumentError: the file could not be read.
	OutcomeDocumentError
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeAllComplete:
		return "all_complete"
	case OutcomeNoMatchingSection:
		return "no_matching_section"
	case OutcomeDocumentError:
		return "document_error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Matcher decides whether a heading title belongs to a role.
type Matcher interface {
	Match(title string) bool
}

// Synonyms matches a title that starts with any of its entries, compared
// case-insensitively after leading numbering is dropped. Plurals and
// suffixes match too: "APIs" and "Servers" belong to "api" and "server".
type Synonyms []string

// Match implements Matcher.
func (s Synonyms) Match(title string) bool {
	norm := normalizeTitle(title)
	for _, syn := range s {
		if syn = normalize(syn); syn != "" && strings.HasPrefix(norm, syn) {
			return true
		}
	}
	return false
}

// normalizeTitle drops leading decoration such as numbering or emoji.
func normalizeTitle(title string) string {
	return normalize(strings.TrimLeftFunc(title, func(r rune) bool { return !unicode.IsLetter(r) }))
}

// Result is the outcome of scanning a document for one role.
type Result struct {
	Outcome   Outcome
	Tasks     []Task // unchecked tasks, in document order
	Sections  []*Section
	Total     int
	Completed int
	Err       error
}

// Texts returns the text of every pending task.
func (r Result) Texts() []string {
	out := make([]string, len(r.Tasks))
	for i, t := range r.Tasks {
		out[i] = t.Text
	}
	return out
}

// Scan collects the tasks governed by headings that match m. Headings
// deeper than maxDepth are never matched themselves, but their tasks are
// still counted when they sit inside a matching section.
func Scan(doc *Document, m Matcher, maxDepth int) Result {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var matched []*Section
	for _, sec := range doc.Sections {
		if sec.Depth > maxDepth || !m.Match(sec.Title) {
			continue
		}
		// Skip sections already covered by a matching ancestor.
		if len(matched) > 0 && matched[len(matched)-1].Contains(sec.Line) {
			continue
		}
		matched = append(matched, sec)
	}

	res := Result{Outcome: OutcomeNoMatchingSection, Sections: matched}
	for _, sec := range matched {
		for _, t := range sec.Tasks {
			res.Total++
			if t.Completed {
				res.Completed++
				continue
			}
			res.Tasks = append(res.Tasks, t)
		}
	}

	switch {
	case res.Total == 0:
		res.Outcome = OutcomeNoMatchingSection
	case len(res.Tasks) == 0:
		res.Outcome = OutcomeAllComplete
	default:
		res.Outcome = OutcomePending
	}
	return res
}

// Load reads and parses a ledger file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocument, err)
	}
	return Parse(string(data)), nil
}

// ScanFile loads path from scratch and scans it.
func ScanFile(path string, m Matcher, maxDepth int) Result {
	doc, err := Load(path)
	if err != nil {
		return Result{Outcome: OutcomeDocumentError, Err: err}
	}
	return Scan(doc, m, maxDepth)
}

// Fingerprint is an order-independent digest of a task set. Two scans
// that report the same pending tasks yield the same fingerprint.
func Fingerprint(tasks []Task) string {
	if len(tasks) == 0 {
		return ""
	}
	keys := make([]string, len(tasks))
	for i, t := range tasks {
		keys[i] = t.Key
	}
	sort.Strings(keys)
	return taskKey("", strings.Join(keys, ","))
}
