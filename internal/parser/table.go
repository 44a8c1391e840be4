package parser

import (
	"regexp"
	"strings"
)

var separatorRow = regexp.MustCompile(`^\|[-:\s|]+\|$`)

// sectionBody returns the text between the first match of start and the
// first match of end that follows it, or the end of the document.
func sectionBody(doc string, start, end *regexp.Regexp) (string, bool) {
	loc := start.FindStringIndex(doc)
	if loc == nil {
		return "", false
	}
	rest := doc[loc[1]:]
	if end != nil {
		if e := end.FindStringIndex(rest); e != nil {
			rest = rest[:e[0]]
		}
	}
	return rest, true
}

// pipeRows returns the trimmed lines of text that contain a pipe.
func pipeRows(text string) []string {
	var rows []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "|") {
			rows = append(rows, strings.TrimSpace(line))
		}
	}
	return rows
}

// dataRows drops the header and separator rows of a pipe table.
func dataRows(rows []string) []string {
	if len(rows) <= 2 {
		return nil
	}
	return rows[2:]
}

// splitCells splits a table row on pipes, discarding whatever sits outside
// the outermost pipes, and trims each cell.
func splitCells(row string) []string {
	parts := strings.Split(row, "|")
	if len(parts) < 2 {
		return nil
	}
	parts = parts[1 : len(parts)-1]
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// markdownTable parses a loosely formatted table. Separator rows are dropped
// along with the header row that precedes the first separator.
func markdownTable(text string) [][]string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "|") {
			continue
		}
		lines = append(lines, line)
	}

	var rows [][]string
	headerDropped := false
	for i, line := range lines {
		if separatorRow.MatchString(line) {
			continue
		}
		if !headerDropped && i+1 < len(lines) && separatorRow.MatchString(lines[i+1]) {
			headerDropped = true
			continue
		}
		rows = append(rows, splitCells(line))
	}
	return rows
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
