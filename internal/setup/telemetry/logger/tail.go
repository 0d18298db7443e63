package logger

import "strings"

// lineTail follows the end of a log file. It holds at most limit lines and counts the
// lines written to the file since it was last rewritten, so the file can be cut back
// to its tail once it has grown to twice the limit.
type lineTail struct {
	limit   int
	lines   []string // Most recent lines, oldest first
	written int      // Lines in the file since the last rewrite
}

func newLineTail(limit int) *lineTail {
	return &lineTail{limit: limit, lines: make([]string, 0, limit+1)}
}

// add records the lines of one write and reports whether the file is due for a rewrite.
// Blank lines are not counted.
func (t *lineTail) add(p []byte) bool {
	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		t.lines = append(t.lines, line)
		t.written++

		if len(t.lines) > t.limit {
			t.lines = append(t.lines[:0], t.lines[1:]...)
		}
	}

	return t.written >= 2*t.limit
}

// content returns the text of the rewritten file.
func (t *lineTail) content() string {
	return strings.Join(t.lines, "\n") + "\n"
}

// rewritten marks the file as holding only the tail.
func (t *lineTail) rewritten() {
	t.written = len(t.lines)
}
