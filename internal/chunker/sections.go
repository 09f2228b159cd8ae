package chunker

import (
	"regexp"
	"sort"
	"strings"
)

// sectionPatterns are the structural cues that open a new section, in
// priority order: numbered headings, Roman numerals, lettered sub-items,
// all-caps heading lines, markdown headings.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^(\d+\.(?:\d+\.?)*)\s+(.+)$`),
	regexp.MustCompile(`(?m)^([IVXLivxl]+\.)\s+(.+)$`),
	regexp.MustCompile(`(?m)^\([a-z]\)\s+(.+)$`),
	regexp.MustCompile(`(?m)^([A-Z][A-Z\s]{5,})$`),
	regexp.MustCompile(`(?m)^#{1,4}\s+(.+)$`),
}

// section is a heading-delimited span of the document. Title is empty for
// the headerless preamble before the first detected heading.
type section struct {
	title string
	text  string
}

// splitIntoSections finds all heading matches, sorts them by offset, and
// treats the span between consecutive matches as one section. A document
// with no headings is a single untitled section.
func splitIntoSections(text string) []section {
	type headerMatch struct {
		pos    int
		header string
	}

	var headers []headerMatch
	seen := make(map[int]bool)
	for _, pattern := range sectionPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			if seen[loc[0]] {
				continue
			}
			seen[loc[0]] = true
			headers = append(headers, headerMatch{
				pos:    loc[0],
				header: strings.TrimSpace(text[loc[0]:loc[1]]),
			})
		}
	}

	if len(headers) == 0 {
		return []section{{title: "", text: text}}
	}

	sort.Slice(headers, func(i, j int) bool { return headers[i].pos < headers[j].pos })

	var sections []section
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].pos
		}
		body := strings.TrimSpace(text[h.pos:end])
		body = strings.TrimSpace(strings.TrimPrefix(body, h.header))
		if body != "" {
			sections = append(sections, section{title: h.header, text: body})
		}
	}

	if preamble := strings.TrimSpace(text[:headers[0].pos]); preamble != "" {
		sections = append([]section{{title: "", text: preamble}}, sections...)
	}

	return sections
}
