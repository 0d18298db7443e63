package utils

import (
	"regexp"
	"strings"
)

// MultipleSpaces matches any sequence of whitespace (including newlines).
var MultipleSpaces = regexp.MustCompile(`\s+`)

// cellSeparator matches tabs or runs of two or more spaces, the column gap used by
// preformatted text tables.
var cellSeparator = regexp.MustCompile(`\t+|\s{2,}`)

// CompressAllWhitespace replaces all whitespace sequences (including newlines) with a single space.
// This is useful for cases where you want to completely normalize whitespace.
func CompressAllWhitespace(s string) string {
	return strings.TrimSpace(MultipleSpaces.ReplaceAllString(s, " "))
}

// SplitColumns splits one line of a preformatted text table into trimmed cells.
// Single spaces are kept inside a cell so values like "GET / HTTP/1.1" survive.
func SplitColumns(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	parts := cellSeparator.Split(line, -1)
	cells := make([]string, 0, len(parts))

	for _, part := range parts {
		cells = append(cells, strings.TrimSpace(part))
	}

	return cells
}

// SplitBlocks splits text into blocks of non-empty lines separated by blank lines.
// Line endings are normalized first.
func SplitBlocks(s string) [][]string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var (
		blocks  [][]string
		current []string
	)

	for line := range strings.SplitSeq(s, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}

			continue
		}

		current = append(current, line)
	}

	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	return blocks
}
