package projector

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// ErrLineOutOfRange is returned when a 0-based line index does not name a
	// line of the document.
	ErrLineOutOfRange = errors.New("line out of range")
	// ErrColumnOutOfRange is returned for columns below 1.
	ErrColumnOutOfRange = errors.New("column out of range")
)

// Encoding is the unit LSP character positions are counted in.
type Encoding int

const (
	// UTF16 counts UTF-16 code units. It is the LSP default.
	UTF16 Encoding = iota
	// UTF8 counts bytes.
	UTF8
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	default:
		return "utf-16"
	}
}

// Document is an immutable view of a text buffer at one revision.
//
// Offsets are byte offsets into Text. Every offset handed out by this
// package is on a rune boundary, or past the end of the text.
type Document struct {
	text       string
	lineStarts []int
	revision   uint64
}

// NewDocument indexes text. revision is the modification stamp of the
// buffer the text was taken from.
func NewDocument(text string, revision uint64) *Document {
	starts := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{
		text:       text,
		lineStarts: starts,
		revision:   revision,
	}
}

func (d *Document) Text() string     { return d.text }
func (d *Document) Len() int         { return len(d.text) }
func (d *Document) Revision() uint64 { return d.revision }

// LineCount is the number of lines. A trailing newline starts an empty
// last line.
func (d *Document) LineCount() int { return len(d.lineStarts) }

// LineStartOffset returns the offset of the first byte of the 0-based line.
func (d *Document) LineStartOffset(line int) (int, error) {
	if line < 0 || line >= len(d.lineStarts) {
		return 0, fmt.Errorf("%w: %d (document has %d lines)", ErrLineOutOfRange, line, len(d.lineStarts))
	}
	return d.lineStarts[line], nil
}

// Line returns the 0-based line containing offset. Offsets past the end
// map to the last line.
func (d *Document) Line(offset int) int {
	idx := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset })
	if idx == 0 {
		return 0
	}
	return idx - 1
}

// Position converts a byte offset into a 0-based line and a character
// counted in enc units. Offsets past the end are clamped to the end and
// offsets inside a multi-byte rune round up to the end of that rune.
func (d *Document) Position(offset int, enc Encoding) (line, character int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line = d.Line(offset)
	start := d.lineStarts[line]
	for off := start; off < offset; {
		r, size := utf8.DecodeRuneInString(d.text[off:])
		switch {
		case enc == UTF8:
			character += size
		case r > 0xFFFF:
			character += 2
		default:
			character++
		}
		off += size
	}
	return line, character
}
