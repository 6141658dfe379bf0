// internal/ledger/document.go
package ledger

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"
)

// Document is a parsed ledger. It is a snapshot: the file is re-read and
// re-parsed from scratch on every round.
type Document struct {
	Sections []*Section
	// Tasks holds every checkbox line in document order, including
	// those that appear before the first heading.
	Tasks []Task
}

// Section is a heading and the lines it governs. A section's range runs
// to the next heading of equal or shallower depth, so deeper headings
// (and their tasks) are nested inside it.
type Section struct {
	Title string
	Depth int
	Line  int // 1-based line number of the heading
	End   int // 1-based line number of the last line in range
	Body  string
	Tasks []Task
}

// Task is a single checkbox item.
type Task struct {
	Text      string
	Completed bool
	Line      int
	Section   string // title of the innermost enclosing heading
	Key       string // stable identity derived from Section and Text
}

// Contains reports whether the line number falls inside the section body.
func (s *Section) Contains(line int) bool {
	return line > s.Line && line <= s.End
}

type heading struct {
	depth int
	title string
}

// Parse reads ledger text. It never fails: lines it does not understand
// are treated as prose.
func Parse(text string) *Document {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}

	doc := &Document{}
	var (
		inFence    bool
		current    *Task
		innerTitle string
		open       []*Section // stack of sections still in range
	)

	closeTask := func() {
		if current == nil {
			return
		}
		current.Key = taskKey(current.Section, current.Text)
		doc.Tasks = append(doc.Tasks, *current)
		current = nil
	}

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if isFence(trimmed) {
			closeTask()
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if h, ok := parseHeading(line); ok {
			closeTask()
			// Pop every open section this heading terminates.
			for len(open) > 0 && open[len(open)-1].Depth >= h.depth {
				open[len(open)-1].End = lineNo - 1
				open = open[:len(open)-1]
			}
			sec := &Section{Title: h.title, Depth: h.depth, Line: lineNo}
			doc.Sections = append(doc.Sections, sec)
			open = append(open, sec)
			innerTitle = h.title
			continue
		}

		if trimmed == "" {
			closeTask()
			continue
		}

		if text, done, ok := parseTask(trimmed); ok {
			closeTask()
			current = &Task{Text: text, Completed: done, Line: lineNo, Section: innerTitle}
			continue
		}

		if isListItem(trimmed) {
			closeTask()
			continue
		}

		if current != nil {
			if current.Text == "" {
				current.Text = trimmed
			} else {
				current.Text += "\n" + trimmed
			}
		}
	}
	closeTask()

	for _, sec := range open {
		sec.End = len(lines)
	}

	for _, sec := range doc.Sections {
		if sec.End > sec.Line {
			sec.Body = strings.Join(lines[sec.Line:sec.End], "\n")
		}
		for _, t := range doc.Tasks {
			if sec.Contains(t.Line) {
				sec.Tasks = append(sec.Tasks, t)
			}
		}
	}
	return doc
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// parseHeading recognises ATX headings with up to three spaces of indent.
func parseHeading(line string) (heading, bool) {
	indent := len(line) - len(strings.TrimLeft(line, " "))
	if indent > 3 {
		return heading{}, false
	}
	rest := line[indent:]
	depth := 0
	for depth < len(rest) && rest[depth] == '#' {
		depth++
	}
	if depth == 0 || depth > 6 {
		return heading{}, false
	}
	rest = rest[depth:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return heading{}, false
	}
	title := strings.TrimSpace(rest)
	// Optional closing sequence: "## Title ##".
	if trimmed := strings.TrimRight(title, "#"); trimmed != title {
		if trimmed == "" || strings.HasSuffix(trimmed, " ") || strings.HasSuffix(trimmed, "\t") {
			title = strings.TrimSpace(trimmed)
		}
	}
	return heading{depth: depth, title: title}, true
}

// parseTask recognises "- [ ] text", "- [x] text" and the "*"/"+" bullet forms.
func parseTask(trimmed string) (text string, completed bool, ok bool) {
	if len(trimmed) < 5 {
		return "", false, false
	}
	switch trimmed[0] {
	case '-', '*', '+':
	default:
		return "", false, false
	}
	if trimmed[1] != ' ' || trimmed[2] != '[' || trimmed[4] != ']' {
		return "", false, false
	}
	switch trimmed[3] {
	case ' ':
	case 'x', 'X':
		completed = true
	default:
		return "", false, false
	}
	// Text may follow the bracket directly: "- [ ]Add auth endpoint".
	return strings.TrimSpace(trimmed[5:]), completed, true
}

func isListItem(trimmed string) bool {
	if len(trimmed) < 2 {
		return false
	}
	switch trimmed[0] {
	case '-', '*', '+':
		return trimmed[1] == ' ' || trimmed[1] == '\t'
	}
	return false
}

func taskKey(section, text string) string {
	sum := sha1.Sum([]byte(normalize(section) + "\x00" + normalize(text)))
	return hex.EncodeToString(sum[:6])
}

// normalize lowercases and collapses whitespace.
func normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}
