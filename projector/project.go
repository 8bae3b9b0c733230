package projector

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrOutOfDocument is returned when a projected range does not fit the
	// document.
	ErrOutOfDocument = errors.New("range outside document")
	// ErrInOuterRegion is returned when a projected range belongs to
	// embedded foreign content.
	ErrInOuterRegion = errors.New("range inside outer region")
)

// Projector converts linter line/column coordinates into document offsets.
// The zero value counts every rune, tabs included, as one column.
type Projector struct {
	// TabWidth, when greater than one, makes a tab advance the column to the
	// next tab stop. shellcheck reports columns with 8-wide tab stops.
	TabWidth int
}

// OffsetFor is Projector{}.OffsetFor.
func OffsetFor(doc *Document, line, column int) (int, error) {
	return Projector{}.OffsetFor(doc, line, column)
}

// Project is Projector{}.Project.
func Project(doc *Document, d Diagnostic, regions []Region) (Projected, error) {
	return Projector{}.Project(doc, d, regions)
}

// OffsetFor returns the offset of the 1-based column on the 0-based line.
//
// The column is counted from the start of the line one rune at a time, so
// multi-byte characters occupy a single column and the result always sits
// on a rune boundary. The walk does not stop at the end of the line and
// the result is not clamped: a column past the end of the text yields an
// offset past Len, which Project then rejects.
func (p Projector) OffsetFor(doc *Document, line, column int) (int, error) {
	offset, err := doc.LineStartOffset(line)
	if err != nil {
		return 0, err
	}
	if column < 1 {
		return 0, fmt.Errorf("%w: %d", ErrColumnOutOfRange, column)
	}
	text := doc.Text()
	for col := 1; col < column; {
		if offset >= len(text) {
			return offset + column - col, nil
		}
		r, size := utf8.DecodeRuneInString(text[offset:])
		col = p.advance(col, r)
		offset += size
	}
	return offset, nil
}

func (p Projector) advance(col int, r rune) int {
	if r == '\t' && p.TabWidth > 1 {
		return col + p.TabWidth - (col-1)%p.TabWidth
	}
	return col + 1
}

// Project places d on the document. A diagnostic that collapses to a single
// point is widened by one so there is something to highlight; when the
// widened end falls inside a multi-byte rune, Document.Position rounds it
// to the end of that rune.
//
// The diagnostic is rejected when its range does not fit the document or
// when any region fully contains it.
func (p Projector) Project(doc *Document, d Diagnostic, regions []Region) (Projected, error) {
	start, err := p.OffsetFor(doc, d.StartLine-1, d.StartColumn)
	if err != nil {
		return Projected{}, fmt.Errorf("start: %w", err)
	}
	end, err := p.OffsetFor(doc, d.EndLine-1, d.EndColumn)
	if err != nil {
		return Projected{}, fmt.Errorf("end: %w", err)
	}
	if end == start {
		end = start + 1
	}

	r := Range{Start: start, End: end}
	if !r.Within(doc.Len()) {
		return Projected{}, fmt.Errorf("%w: [%d, %d) in %d bytes", ErrOutOfDocument, r.Start, r.End, doc.Len())
	}
	for _, region := range regions {
		if region.Contains(r) {
			return Projected{}, fmt.Errorf("%w: [%d, %d) in [%d, %d)", ErrInOuterRegion, r.Start, r.End, region.Start, region.End)
		}
	}
	return Projected{
		Range:      r,
		Severity:   SeverityOf(d.Level),
		Diagnostic: d,
	}, nil
}

// ProjectBatch projects every diagnostic of the batch. Diagnostics that
// cannot be projected are dropped; the rest of the batch is unaffected.
func (p Projector) ProjectBatch(doc *Document, batch Batch, regions []Region) Result {
	res := Result{Revision: batch.Revision}
	for _, d := range batch.Diagnostics {
		projected, err := p.Project(doc, d, regions)
		if err != nil {
			continue
		}
		res.Projected = append(res.Projected, projected)
	}
	return res
}
