package projector

import "fmt"

// Diagnostic is one linter finding, in the coordinates of the text that
// was submitted to the linter. Lines and columns are 1-based.
type Diagnostic struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Level       string
	Message     string
	Code        int
	Fix         *Fix
}

// CodeString renders the linter code the way shellcheck does, e.g. SC2086.
func (d Diagnostic) CodeString() string {
	return fmt.Sprintf("SC%d", d.Code)
}

// HasFix reports whether the diagnostic carries at least one replacement.
func (d Diagnostic) HasFix() bool {
	return d.Fix != nil && len(d.Fix.Replacements) > 0
}

// Fix is an ordered set of replacements that resolve a diagnostic.
type Fix struct {
	Replacements []Replacement
}

// Replacement substitutes Text for the span between the start and end
// positions, in the same coordinate space as the diagnostic.
type Replacement struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Text        string
}

// Range is a half-open [Start, End) offset interval.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }

// Within reports whether r lies inside a document of length n.
func (r Range) Within(n int) bool {
	return r.Start >= 0 && r.Start <= r.End && r.End <= n
}

// Region is an offset interval of embedded foreign content, for example a
// template directive inside a shell script.
type Region struct {
	Start int
	End   int
}

// Contains reports whether r lies entirely inside the region.
func (g Region) Contains(r Range) bool {
	return g.Start <= r.Start && r.End <= g.End
}

// Projected is a diagnostic placed on document offsets.
type Projected struct {
	Range      Range
	Severity   Severity
	Diagnostic Diagnostic
}

// Batch is the output of one linter run over one document revision.
type Batch struct {
	Revision    uint64
	Diagnostics []Diagnostic
}

// Result is a projected Batch.
type Result struct {
	Revision  uint64
	Projected []Projected
}
