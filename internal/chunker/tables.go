package chunker

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

// tableLinePatterns mark a line as table-like: markdown table rows,
// pipe-separated values, or space-aligned columns.
var tableLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\|.*\|$`),
	regexp.MustCompile(`^[\w\s]+\s*\|\s*[\w\s]+`),
	regexp.MustCompile(`^\s*\S+\s{3,}\S+\s{3,}\S+`),
}

func isTableLine(line string) bool {
	for _, p := range tableLinePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// run is a maximal sequence of lines of one kind within a section.
type run struct {
	kind docmeta.ChunkType // ChunkText or ChunkTable
	text string
}

// splitAroundTables separates a section into alternating text and table
// runs. Table runs stay whole so their row structure survives chunking.
func splitAroundTables(text string) []run {
	lines := strings.Split(text, "\n")

	var runs []run
	current := docmeta.ChunkText
	var buf []string

	flush := func() {
		if len(buf) > 0 {
			runs = append(runs, run{kind: current, text: strings.Join(buf, "\n")})
			buf = nil
		}
	}

	for _, line := range lines {
		kind := docmeta.ChunkText
		if isTableLine(line) {
			kind = docmeta.ChunkTable
		}
		if kind != current {
			flush()
			current = kind
		}
		buf = append(buf, line)
	}
	flush()

	return runs
}
