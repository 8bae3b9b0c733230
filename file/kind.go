package file

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/corymhall/shlsp/lsp"
)

// Kind describes the kind of the file in question.
type Kind int

const (
	// UnknownKind is a file type we don't know about.
	UnknownKind = Kind(iota)

	// Shell is a plain shell script.
	Shell

	// ShellTemplate is a shell script with template directives embedded in
	// it. The directives are never linted.
	ShellTemplate
)

func (k Kind) String() string {
	switch k {
	case Shell:
		return "shell"
	case ShellTemplate:
		return "shell-template"
	default:
		return fmt.Sprintf("internal error: unknown file kind %d", k)
	}
}

var templateExts = map[string]bool{
	".tmpl":  true,
	".tpl":   true,
	".j2":    true,
	".jinja": true,
}

// KindForLang returns the file [Kind] associated with the given LSP
// LanguageKind string from the LanguageID field of [lsp.TextDocumentItem],
// or UnknownKind if the language is not a shell dialect.
func KindForLang(langID lsp.LanguageKind) Kind {
	switch langID {
	case "shellscript", "sh", "bash", "ksh", "dash", "zsh":
		return Shell
	case "gotmpl", "jinja", "jinja-shell", "shellscript-template":
		return ShellTemplate
	default:
		return UnknownKind
	}
}

// KindForPath classifies a file by its name, looking through a template
// extension to the one before it (deploy.sh.tmpl is a ShellTemplate).
func KindForPath(path string) Kind {
	base := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(base)
	if templateExts[ext] {
		inner := filepath.Ext(strings.TrimSuffix(base, ext))
		if inner == "" || shellExts[inner] {
			return ShellTemplate
		}
		return UnknownKind
	}
	if shellExts[ext] {
		return Shell
	}
	return UnknownKind
}

var shellExts = map[string]bool{
	".sh":   true,
	".bash": true,
	".ksh":  true,
	".dash": true,
}

// Resolve picks the kind of a document from its language id, falling back
// to its path. A template extension wins over a plain shell language id.
func Resolve(langID lsp.LanguageKind, path string) Kind {
	byPath := KindForPath(path)
	if byPath == ShellTemplate {
		return ShellTemplate
	}
	if k := KindForLang(langID); k != UnknownKind {
		return k
	}
	return byPath
}
