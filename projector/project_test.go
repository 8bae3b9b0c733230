package projector

import (
	"strings"
	"testing"

	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/require"
)

func TestOffsetForSingleUnitText(t *testing.T) {
	doc := NewDocument("echo hi\nls -la /tmp\n", 1)
	for line := 0; line < 2; line++ {
		start, err := doc.LineStartOffset(line)
		require.NoError(t, err)
		for col := 1; col <= 7; col++ {
			off, err := OffsetFor(doc, line, col)
			require.NoError(t, err)
			require.Equal(t, start+col-1, off, "line %d col %d", line, col)
		}
	}
}

func TestOffsetForWideCharacters(t *testing.T) {
	doc := NewDocument("🙂x\né=1\n", 1)

	off, err := OffsetFor(doc, 0, 2)
	require.NoError(t, err)
	require.Equal(t, len("🙂"), off)
	require.Equal(t, "x", doc.Text()[off:off+1])

	off, err = OffsetFor(doc, 1, 2)
	require.NoError(t, err)
	start, err := doc.LineStartOffset(1)
	require.NoError(t, err)
	require.Equal(t, start+len("é"), off)
	require.Equal(t, "=", doc.Text()[off:off+1])
}

func TestOffsetForTabs(t *testing.T) {
	doc := NewDocument("\tx\n  \ty\n", 1)

	off, err := OffsetFor(doc, 0, 2)
	require.NoError(t, err)
	require.Equal(t, 1, off)

	sc := Projector{TabWidth: 8}
	off, err = sc.OffsetFor(doc, 0, 9)
	require.NoError(t, err)
	require.Equal(t, 1, off)

	// two spaces then a tab still stop at column 9
	off, err = sc.OffsetFor(doc, 1, 9)
	require.NoError(t, err)
	require.Equal(t, "y", doc.Text()[off:off+1])
}

func TestOffsetForErrors(t *testing.T) {
	doc := NewDocument("echo\n", 1)

	_, err := OffsetFor(doc, 2, 1)
	require.ErrorIs(t, err, ErrLineOutOfRange)
	_, err = OffsetFor(doc, -1, 1)
	require.ErrorIs(t, err, ErrLineOutOfRange)
	_, err = OffsetFor(doc, 0, 0)
	require.ErrorIs(t, err, ErrColumnOutOfRange)

	// past the end of the text the walk keeps counting instead of clamping
	off, err := OffsetFor(doc, 1, 4)
	require.NoError(t, err)
	require.Equal(t, doc.Len()+3, off)
}

func TestProjectEndToEnd(t *testing.T) {
	doc := NewDocument("echo $x\n", 7)
	d := Diagnostic{
		StartLine:   1,
		EndLine:     1,
		StartColumn: 6,
		EndColumn:   8,
		Level:       "warning",
		Message:     "Double quote to prevent globbing.",
		Code:        2086,
	}

	got, err := Project(doc, d, nil)
	require.NoError(t, err)
	require.Equal(t, Range{Start: 5, End: 7}, got.Range)
	require.Equal(t, "$x", doc.Text()[got.Range.Start:got.Range.End])
	require.Equal(t, Warning, got.Severity)
	require.Equal(t, "Double quote to prevent globbing", FormatMessage(got.Diagnostic.Message))
	require.Equal(t, d, got.Diagnostic)
}

func TestProjectPointBecomesOneCharacter(t *testing.T) {
	doc := NewDocument("if [ $a = 1 ]\nthen :\nfi\n", 1)
	for line := 1; line <= 3; line++ {
		for col := 1; col <= 3; col++ {
			got, err := Project(doc, Diagnostic{StartLine: line, EndLine: line, StartColumn: col, EndColumn: col}, nil)
			require.NoError(t, err)
			require.Equal(t, 1, got.Range.Len())
		}
	}
}

func TestProjectRejectsOutsideDocument(t *testing.T) {
	doc := NewDocument("echo $x\n", 1)
	cases := map[string]Diagnostic{
		"point at end":  {StartLine: 2, EndLine: 2, StartColumn: 1, EndColumn: 1},
		"end past text": {StartLine: 1, EndLine: 2, StartColumn: 1, EndColumn: 5},
		"missing line":  {StartLine: 4, EndLine: 4, StartColumn: 1, EndColumn: 2},
		"zero line":     {StartLine: 0, EndLine: 1, StartColumn: 1, EndColumn: 2},
		"inverted":      {StartLine: 1, EndLine: 1, StartColumn: 5, EndColumn: 2},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Project(doc, d, nil)
			require.Error(t, err)
		})
	}

	_, err := Project(doc, cases["end past text"], nil)
	require.ErrorIs(t, err, ErrOutOfDocument)
}

func TestProjectRejectsOuterRegion(t *testing.T) {
	text := "echo {{ .Name }} $x\n"
	doc := NewDocument(text, 1)
	open := strings.Index(text, "{{")
	region := Region{Start: open, End: strings.Index(text, "}}") + 2}

	inside := Diagnostic{StartLine: 1, EndLine: 1, StartColumn: open + 2, EndColumn: open + 8}
	_, err := Project(doc, inside, []Region{region})
	require.ErrorIs(t, err, ErrInOuterRegion)

	overlapping := Diagnostic{StartLine: 1, EndLine: 1, StartColumn: 1, EndColumn: open + 3}
	_, err = Project(doc, overlapping, []Region{region})
	require.NoError(t, err)

	after := Diagnostic{StartLine: 1, EndLine: 1, StartColumn: region.End + 2, EndColumn: region.End + 4}
	got, err := Project(doc, after, []Region{region})
	require.NoError(t, err)
	require.Equal(t, "$x", text[got.Range.Start:got.Range.End])
}

func TestProjectBatchDropsInvalidDiagnostics(t *testing.T) {
	doc := NewDocument("echo $x\nrm $y\n", 42)
	batch := Batch{
		Revision: 42,
		Diagnostics: []Diagnostic{
			{StartLine: 1, EndLine: 1, StartColumn: 6, EndColumn: 8, Level: "info", Message: "Double quote to prevent globbing.", Code: 2086},
			{StartLine: 9, EndLine: 9, StartColumn: 1, EndColumn: 2, Level: "error", Message: "gone", Code: 1000},
			{StartLine: 2, EndLine: 2, StartColumn: 4, EndColumn: 6, Level: "error", Message: "Use \"${var:?}\".", Code: 2115},
		},
	}

	got := Projector{TabWidth: 8}.ProjectBatch(doc, batch, nil)
	autogold.Expect(Result{
		Revision: 42,
		Projected: []Projected{
			{
				Range: Range{Start: 5, End: 7},
				Diagnostic: Diagnostic{
					StartLine:   1,
					StartColumn: 6,
					EndLine:     1,
					EndColumn:   8,
					Level:       "info",
					Message:     "Double quote to prevent globbing.",
					Code:        2086,
				},
			},
			{
				Range:    Range{Start: 11, End: 13},
				Severity: Error,
				Diagnostic: Diagnostic{
					StartLine:   2,
					StartColumn: 4,
					EndLine:     2,
					EndColumn:   6,
					Level:       "error",
					Message:     `Use "${var:?}".`,
					Code:        2115,
				},
			},
		},
	}).Equal(t, got)
}

func TestPosition(t *testing.T) {
	doc := NewDocument("a\n🙂x\n", 1)

	line, char := doc.Position(2+len("🙂"), UTF16)
	require.Equal(t, 1, line)
	require.Equal(t, 2, char)

	line, char = doc.Position(2+len("🙂"), UTF8)
	require.Equal(t, 1, line)
	require.Equal(t, 4, char)

	// inside the emoji rounds up to its end
	line, char = doc.Position(3, UTF16)
	require.Equal(t, 1, line)
	require.Equal(t, 2, char)

	line, char = doc.Position(100, UTF16)
	require.Equal(t, 2, line)
	require.Equal(t, 0, char)
}
