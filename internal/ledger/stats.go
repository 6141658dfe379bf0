// internal/ledger/stats.go
package ledger

// SectionStats summarises the checkboxes directly owned by a heading.
type SectionStats struct {
	Title     string
	Depth     int
	Completed int
	Total     int
}

// Done reports whether every task in the section is checked.
func (s SectionStats) Done() bool {
	return s.Completed >= s.Total
}

// Stats returns per-heading counts. A task is counted once, under its
// innermost heading, so nested sections do not double count.
func (d *Document) Stats() []SectionStats {
	stats := make([]SectionStats, 0, len(d.Sections))
	for i, sec := range d.Sections {
		st := SectionStats{Title: sec.Title, Depth: sec.Depth}
		// Own range ends where the next heading starts.
		ownEnd := sec.End
		if i+1 < len(d.Sections) && d.Sections[i+1].Line-1 < ownEnd {
			ownEnd = d.Sections[i+1].Line - 1
		}
		for _, t := range sec.Tasks {
			if t.Line > ownEnd {
				continue
			}
			st.Total++
			if t.Completed {
				st.Completed++
			}
		}
		stats = append(stats, st)
	}
	return stats
}

// NextIncomplete returns the first section that still has unchecked tasks.
func (d *Document) NextIncomplete() (SectionStats, bool) {
	for _, st := range d.Stats() {
		if st.Total > 0 && !st.Done() {
			return st, true
		}
	}
	return SectionStats{}, false
}

// Totals counts every checkbox in the document.
func (d *Document) Totals() (completed, total int) {
	for _, t := range d.Tasks {
		total++
		if t.Completed {
			completed++
		}
	}
	return completed, total
}
