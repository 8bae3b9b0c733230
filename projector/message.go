package projector

import (
	"strings"

	"github.com/rivo/uniseg"
)

const maxQuotedLength = 60

// FormatMessage drops a single trailing period.
func FormatMessage(msg string) string {
	return strings.TrimSuffix(msg, ".")
}

// QuoteMessage wraps msg in single quotes for use inside an action label,
// keeping at most 60 characters and marking the cut with an ellipsis.
// Characters are user-perceived characters, so a flag or an accented
// letter is never split.
func QuoteMessage(msg string) string {
	if uniseg.GraphemeClusterCount(msg) <= maxQuotedLength {
		return "'" + msg + "'"
	}
	var b strings.Builder
	b.WriteByte('\'')
	g := uniseg.NewGraphemes(msg)
	for i := 0; i < maxQuotedLength && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	b.WriteString("...'")
	return b.String()
}
