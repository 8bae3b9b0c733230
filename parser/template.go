package parser

import (
	"strings"

	"github.com/corymhall/shlsp/projector"
)

// Delimiter is an open/close pair enclosing template directives.
type Delimiter struct {
	Open  string
	Close string
}

// DefaultDelimiters cover Go templates and Jinja.
var DefaultDelimiters = []Delimiter{
	{Open: "{{", Close: "}}"},
	{Open: "{%", Close: "%}"},
}

// ParseDelimiter reads a "open close" pair such as "{{ }}".
func ParseDelimiter(s string) (Delimiter, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Delimiter{}, false
	}
	return Delimiter{Open: fields[0], Close: fields[1]}, true
}

// TemplateRegions returns the spans of text taken by template directives,
// delimiters included, in order. A directive that is never closed runs to
// the end of the text.
func TemplateRegions(text string, delims []Delimiter) []projector.Region {
	var regions []projector.Region
	pos := 0
	for pos < len(text) {
		start, d := nextOpen(text, pos, delims)
		if start < 0 {
			break
		}
		body := start + len(d.Open)
		end := len(text)
		if i := strings.Index(text[body:], d.Close); i >= 0 {
			end = body + i + len(d.Close)
		}
		regions = append(regions, projector.Region{Start: start, End: end})
		pos = end
	}
	return regions
}

func nextOpen(text string, pos int, delims []Delimiter) (int, Delimiter) {
	best, found := -1, Delimiter{}
	for _, d := range delims {
		if d.Open == "" || d.Close == "" {
			continue
		}
		i := strings.Index(text[pos:], d.Open)
		if i < 0 {
			continue
		}
		if best < 0 || pos+i < best {
			best, found = pos+i, d
		}
	}
	return best, found
}
