package parser

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/corymhall/shlsp/projector"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
)

const DIRECTIVE_QUERY = `(comment) @comment`

const directivePrefix = "# shellcheck disable="

// ErrAlreadySuppressed is returned by SuppressEdit when the statement is
// already annotated with the code.
var ErrAlreadySuppressed = errors.New("inspection already suppressed")

// containers hold statements on their own lines. A directive can only be
// placed above a direct child of one of these.
var containers = map[string]bool{
	"program":            true,
	"compound_statement": true,
	"do_group":           true,
	"subshell":           true,
	"if_statement":       true,
	"elif_clause":        true,
	"else_clause":        true,
	"case_item":          true,
}

// BashLanguage is the tree-sitter grammar for bash, which also covers the
// POSIX sh, dash and ksh scripts shellcheck accepts.
func BashLanguage() *tree_sitter.Language {
	return tree_sitter.NewLanguage(tree_sitter_bash.Language())
}

// StatementFinder locates statements in shell scripts. It is safe for
// concurrent use.
type StatementFinder struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
	lang   *tree_sitter.Language
}

func (f *StatementFinder) Close() {
	if f.parser != nil {
		f.parser.Close()
	}
}

func NewStatementFinder(language *tree_sitter.Language) (*StatementFinder, error) {
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	parser.StopPrintingDotGraphs()
	return &StatementFinder{
		parser: parser,
		lang:   language,
	}, nil
}

func (f *StatementFinder) parse(text []byte) *tree_sitter.Tree {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parser.Parse(text, nil)
}

// Point is where a suppression directive goes: above Row, indented like
// the statement.
type Point struct {
	Row    int
	Indent string
}

// SuppressionPoint returns the statement line a directive for the finding
// at offset has to precede. Offsets outside any statement map to their own
// line.
func (f *StatementFinder) SuppressionPoint(text string, offset int) (Point, error) {
	doc := projector.NewDocument(text, 0)
	if offset < 0 || offset > doc.Len() {
		return Point{}, fmt.Errorf("%w: offset %d", projector.ErrOutOfDocument, offset)
	}

	src := []byte(text)
	tree := f.parse(src)
	if tree == nil {
		return Point{}, fmt.Errorf("failed to parse document")
	}
	defer tree.Close()

	row := doc.Line(offset)
	root := tree.RootNode()
	node := root.DescendantForByteRange(uint(offset), uint(offset))
	if stmt := statementOf(node); stmt != nil {
		row = int(stmt.StartPosition().Row)
	}
	return Point{Row: row, Indent: indentOf(doc, row)}, nil
}

// statementOf climbs from node to the statement that owns it. A statement
// that shares its first line with its container, like the condition of an
// if, is replaced by the container.
func statementOf(node *tree_sitter.Node) *tree_sitter.Node {
	for node != nil {
		parent := node.Parent()
		if parent == nil {
			return nil
		}
		if containers[parent.Kind()] && node.Kind() != "comment" && node.IsNamed() {
			if parent.Kind() == "program" || node.StartPosition().Row != parent.StartPosition().Row {
				return node
			}
		}
		node = parent
	}
	return nil
}

func indentOf(doc *projector.Document, row int) string {
	start, err := doc.LineStartOffset(row)
	if err != nil {
		return ""
	}
	line := doc.Text()[start:]
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// Directives returns the shellcheck disable directives of text, keyed by
// the 0-based row they are on.
func (f *StatementFinder) Directives(text string) (map[int]string, error) {
	src := []byte(text)
	tree := f.parse(src)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse document")
	}
	defer tree.Close()

	query, queryErr := tree_sitter.NewQuery(f.lang, DIRECTIVE_QUERY)
	if queryErr != nil {
		return nil, fmt.Errorf("failed to create query: %w", queryErr)
	}
	defer query.Close()
	idx, ok := query.CaptureIndexForName("comment")
	if !ok {
		return nil, fmt.Errorf("query has no comment capture")
	}

	directives := map[int]string{}
	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()
	matches := cursor.Matches(query, tree.RootNode(), src)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, node := range match.NodesForCaptureIndex(idx) {
			comment := node.Utf8Text(src)
			if strings.HasPrefix(normalizeDirective(comment), directivePrefix) {
				directives[int(node.StartPosition().Row)] = comment
			}
		}
	}
	return directives, nil
}

// normalizeDirective collapses the spacing shellcheck tolerates after the
// comment marker.
func normalizeDirective(comment string) string {
	rest := strings.TrimLeft(strings.TrimPrefix(comment, "#"), " \t")
	return "# " + rest
}

// SuppressEdit returns the edit that disables code for the statement
// containing offset. An existing disable directive directly above the
// statement is extended instead of adding a second one.
func (f *StatementFinder) SuppressEdit(text string, offset int, code string) (projector.Edit, error) {
	pt, err := f.SuppressionPoint(text, offset)
	if err != nil {
		return projector.Edit{}, err
	}
	doc := projector.NewDocument(text, 0)
	lineStart, err := doc.LineStartOffset(pt.Row)
	if err != nil {
		return projector.Edit{}, err
	}

	if pt.Row > 0 {
		directives, err := f.Directives(text)
		if err != nil {
			return projector.Edit{}, err
		}
		if comment, ok := directives[pt.Row-1]; ok {
			return extendDirective(doc, pt.Row-1, comment, code)
		}
	}

	return projector.Edit{
		Range:   projector.Range{Start: lineStart, End: lineStart},
		NewText: pt.Indent + directivePrefix + code + "\n",
	}, nil
}

func extendDirective(doc *projector.Document, row int, comment, code string) (projector.Edit, error) {
	start, err := doc.LineStartOffset(row)
	if err != nil {
		return projector.Edit{}, err
	}
	at := strings.Index(doc.Text()[start:], comment)
	if at < 0 {
		return projector.Edit{}, fmt.Errorf("directive not found on line %d", row)
	}
	_, after, _ := strings.Cut(comment, "disable=")
	list := after
	if i := strings.IndexAny(list, " \t"); i >= 0 {
		list = list[:i]
	}
	for _, c := range strings.Split(list, ",") {
		if c == code {
			return projector.Edit{}, fmt.Errorf("%w: %s", ErrAlreadySuppressed, code)
		}
	}
	end := start + at + len(comment) - len(after) + len(list)
	return projector.Edit{
		Range:   projector.Range{Start: end, End: end},
		NewText: "," + code,
	}, nil
}
