package parser

import (
	"strings"
	"testing"

	"github.com/corymhall/shlsp/projector"
	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/require"
)

func newFinder(t *testing.T) *StatementFinder {
	t.Helper()
	finder, err := NewStatementFinder(BashLanguage())
	require.NoError(t, err)
	t.Cleanup(finder.Close)
	return finder
}

func TestSuppressionPoint(t *testing.T) {
	text := `#!/bin/bash
echo $x

if [ $a = 1 ]; then
    rm -rf $dir/*
fi

deploy() {
	cat <<EOF
$y
EOF
}
`
	finder := newFinder(t)
	at := func(s string) int {
		i := strings.Index(text, s)
		require.GreaterOrEqual(t, i, 0, s)
		return i
	}

	pt, err := finder.SuppressionPoint(text, at("$x"))
	require.NoError(t, err)
	autogold.Expect(Point{Row: 1}).Equal(t, pt)

	// the condition shares the line of the if, so the directive goes above it
	pt, err = finder.SuppressionPoint(text, at("$a"))
	require.NoError(t, err)
	autogold.Expect(Point{Row: 3}).Equal(t, pt)

	pt, err = finder.SuppressionPoint(text, at("$dir"))
	require.NoError(t, err)
	autogold.Expect(Point{Row: 4, Indent: "    "}).Equal(t, pt)

	// a heredoc body belongs to the statement that opened it
	pt, err = finder.SuppressionPoint(text, at("$y"))
	require.NoError(t, err)
	autogold.Expect(Point{Row: 8, Indent: "\t"}).Equal(t, pt)

	pt, err = finder.SuppressionPoint(text, at("\n\nif"))
	require.NoError(t, err)
	require.Equal(t, 1, pt.Row)

	_, err = finder.SuppressionPoint(text, len(text)+1)
	require.ErrorIs(t, err, projector.ErrOutOfDocument)
}

func TestSuppressEdit(t *testing.T) {
	finder := newFinder(t)

	text := "for f in $(ls); do\n  echo $f\ndone\n"
	edit, err := finder.SuppressEdit(text, strings.Index(text, "$f"), "SC2086")
	require.NoError(t, err)
	got, err := projector.ApplyEdits(text, []projector.Edit{edit})
	require.NoError(t, err)
	autogold.Expect("for f in $(ls); do\n  # shellcheck disable=SC2086\n  echo $f\ndone\n").Equal(t, got)

	// a second suppression extends the directive
	edit, err = finder.SuppressEdit(got, strings.Index(got, "$f\n"), "SC2034")
	require.NoError(t, err)
	got, err = projector.ApplyEdits(got, []projector.Edit{edit})
	require.NoError(t, err)
	autogold.Expect("for f in $(ls); do\n  # shellcheck disable=SC2086,SC2034\n  echo $f\ndone\n").Equal(t, got)

	_, err = finder.SuppressEdit(got, strings.Index(got, "$f\n"), "SC2086")
	require.ErrorIs(t, err, ErrAlreadySuppressed)
}

func TestSuppressEditKeepsOtherDirectiveKeys(t *testing.T) {
	finder := newFinder(t)
	text := "#shellcheck disable=SC1000 source=lib.sh\n. \"$lib\"\n"
	edit, err := finder.SuppressEdit(text, strings.Index(text, "$lib"), "SC1090")
	require.NoError(t, err)
	got, err := projector.ApplyEdits(text, []projector.Edit{edit})
	require.NoError(t, err)
	require.Equal(t, "#shellcheck disable=SC1000,SC1090 source=lib.sh\n. \"$lib\"\n", got)
}

func TestDirectives(t *testing.T) {
	finder := newFinder(t)
	got, err := finder.Directives("# a comment\n# shellcheck disable=SC2086\necho $x # shellcheck disable=SC2154\n")
	require.NoError(t, err)
	autogold.Expect(map[int]string{
		1: "# shellcheck disable=SC2086",
		2: "# shellcheck disable=SC2154",
	}).Equal(t, got)
}

func TestTemplateRegions(t *testing.T) {
	text := "echo {{ .Name }}\n{% if x %}ls $y{% endif %}\nrm {{ .Dir"
	got := TemplateRegions(text, DefaultDelimiters)
	autogold.Expect([]projector.Region{
		{
			Start: 5,
			End:   16,
		},
		{
			Start: 17,
			End:   27,
		},
		{
			Start: 32,
			End:   43,
		},
		{
			Start: 47,
			End:   54,
		},
	}).Equal(t, got)
	for _, r := range got[:3] {
		span := text[r.Start:r.End]
		require.True(t, strings.HasSuffix(span, "}}") || strings.HasSuffix(span, "%}"), span)
	}

	require.Empty(t, TemplateRegions("echo plain\n", DefaultDelimiters))
	require.Empty(t, TemplateRegions("echo {{ x }}\n", nil))
}

func TestParseDelimiter(t *testing.T) {
	d, ok := ParseDelimiter("<% %>")
	require.True(t, ok)
	require.Equal(t, Delimiter{Open: "<%", Close: "%>"}, d)
	_, ok = ParseDelimiter("{{")
	require.False(t, ok)
}
