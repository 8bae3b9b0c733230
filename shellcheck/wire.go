// Package shellcheck runs the shellcheck linter and decodes its findings
// into projector diagnostics.
package shellcheck

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/corymhall/shlsp/projector"
)

// ErrMalformedOutput is returned by Decode when the linter output is
// neither the json nor the json1 format.
var ErrMalformedOutput = errors.New("malformed shellcheck output")

// comment is one finding in shellcheck's json output. The field names are
// shellcheck's and must not change.
type comment struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	EndLine   int    `json:"endLine"`
	Column    int    `json:"column"`
	EndColumn int    `json:"endColumn"`
	Level     string `json:"level"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Fix       *fix   `json:"fix"`
}

type fix struct {
	Replacements []replacement `json:"replacements"`
}

type replacement struct {
	Line        int    `json:"line"`
	EndLine     int    `json:"endLine"`
	Column      int    `json:"column"`
	EndColumn   int    `json:"endColumn"`
	Replacement string `json:"replacement"`
}

// json1 wraps the comments in an object.
type json1 struct {
	Comments []comment `json:"comments"`
}

// Decode parses shellcheck output in the json or json1 format. Empty
// output means no findings.
func Decode(data []byte) ([]projector.Diagnostic, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var comments []comment
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &comments); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
		}
	case '{':
		var doc json1
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
		}
		comments = doc.Comments
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrMalformedOutput, data[0])
	}

	diags := make([]projector.Diagnostic, 0, len(comments))
	for _, c := range comments {
		diags = append(diags, c.diagnostic())
	}
	return diags, nil
}

func (c comment) diagnostic() projector.Diagnostic {
	d := projector.Diagnostic{
		StartLine:   c.Line,
		StartColumn: c.Column,
		EndLine:     c.EndLine,
		EndColumn:   c.EndColumn,
		Level:       c.Level,
		Message:     c.Message,
		Code:        c.Code,
	}
	if c.Fix != nil && len(c.Fix.Replacements) > 0 {
		d.Fix = &projector.Fix{Replacements: make([]projector.Replacement, 0, len(c.Fix.Replacements))}
		for _, r := range c.Fix.Replacements {
			d.Fix.Replacements = append(d.Fix.Replacements, projector.Replacement{
				StartLine:   r.Line,
				StartColumn: r.Column,
				EndLine:     r.EndLine,
				EndColumn:   r.EndColumn,
				Text:        r.Replacement,
			})
		}
	}
	return d
}
