package projector

import (
	"strings"
	"testing"

	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/require"
)

func TestSeverityOf(t *testing.T) {
	require.Equal(t, Error, SeverityOf("error"))
	require.Equal(t, Warning, SeverityOf("warning"))
	for _, level := range []string{"info", "style", "", "ERROR", "note"} {
		require.Equal(t, WeakWarning, SeverityOf(level), level)
	}
	require.Equal(t, "weak warning", SeverityOf("style").String())
}

func TestFormatMessage(t *testing.T) {
	require.Equal(t, "Double quote to prevent globbing", FormatMessage("Double quote to prevent globbing."))
	require.Equal(t, "Expanding an array without an index only gives the first element", FormatMessage("Expanding an array without an index only gives the first element"))
	require.Equal(t, "Wait.", FormatMessage("Wait.."))
	require.Equal(t, "", FormatMessage("."))
	require.Equal(t, "", FormatMessage(""))
}

func TestQuoteMessage(t *testing.T) {
	autogold.Expect("'Double quote to prevent globbing'").Equal(t, QuoteMessage("Double quote to prevent globbing"))

	long := "Use \"$@\" (with quotes) to prevent whitespace problems when passing arguments on"
	autogold.Expect("'Use \"$@\" (with quotes) to prevent whitespace problems when p...'").Equal(t, QuoteMessage(long))

	// grapheme clusters are counted, so combining marks are never split off
	accented := strings.Repeat("e\u0301", 61)
	got := QuoteMessage(accented)
	require.Equal(t, "'"+strings.Repeat("e\u0301", 60)+"...'", got)

	exact := strings.Repeat("x", 60)
	require.Equal(t, "'"+exact+"'", QuoteMessage(exact))
}

func TestDiagnosticCode(t *testing.T) {
	d := Diagnostic{Code: 2086}
	require.Equal(t, "SC2086", d.CodeString())
	require.False(t, d.HasFix())
	d.Fix = &Fix{}
	require.False(t, d.HasFix())
	d.Fix.Replacements = []Replacement{{StartLine: 1, EndLine: 1, StartColumn: 1, EndColumn: 1}}
	require.True(t, d.HasFix())
}
