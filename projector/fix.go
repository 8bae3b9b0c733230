package projector

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOverlappingEdits is returned by ApplyEdits when two edits touch the
// same bytes.
var ErrOverlappingEdits = errors.New("overlapping edits")

// Edit replaces the bytes of Range with NewText. An empty range inserts.
type Edit struct {
	Range   Range
	NewText string
}

// ProjectFix converts the replacements of fix into document edits. Unlike
// diagnostics, a replacement may be empty (an insertion). The conversion is
// all or nothing: one replacement that does not fit the document fails the
// whole fix.
func (p Projector) ProjectFix(doc *Document, fix *Fix) ([]Edit, error) {
	if fix == nil {
		return nil, nil
	}
	edits := make([]Edit, 0, len(fix.Replacements))
	for i, rep := range fix.Replacements {
		start, err := p.OffsetFor(doc, rep.StartLine-1, rep.StartColumn)
		if err != nil {
			return nil, fmt.Errorf("replacement %d: %w", i, err)
		}
		end, err := p.OffsetFor(doc, rep.EndLine-1, rep.EndColumn)
		if err != nil {
			return nil, fmt.Errorf("replacement %d: %w", i, err)
		}
		r := Range{Start: start, End: end}
		if !r.Within(doc.Len()) {
			return nil, fmt.Errorf("replacement %d: %w: [%d, %d)", i, ErrOutOfDocument, start, end)
		}
		edits = append(edits, Edit{Range: r, NewText: rep.Text})
	}
	return edits, nil
}

// ApplyEdits returns text with edits applied. Edits are expressed against
// the original text; insertions at the same offset keep their order.
func ApplyEdits(text string, edits []Edit) (string, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start < sorted[j].Range.Start
	})

	var b strings.Builder
	last := 0
	for _, e := range sorted {
		if !e.Range.Within(len(text)) {
			return "", fmt.Errorf("%w: [%d, %d)", ErrOutOfDocument, e.Range.Start, e.Range.End)
		}
		if e.Range.Start < last {
			return "", fmt.Errorf("%w at %d", ErrOverlappingEdits, e.Range.Start)
		}
		b.WriteString(text[last:e.Range.Start])
		b.WriteString(e.NewText)
		last = e.Range.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}
