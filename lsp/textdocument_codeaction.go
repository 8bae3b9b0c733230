package lsp

import (
	"encoding/json"
	"strings"
)

type CodeActionParams struct {
	WorkDoneProgressOptions
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      CodeActionContext      `json:"context"`
}

type CodeActionKind string

const (
	CodeActionKindEmpty          CodeActionKind = ""
	CodeActionKindQuickFix       CodeActionKind = "quickfix"
	CodeActionKindRefactor       CodeActionKind = "refactor"
	CodeActionKindSource         CodeActionKind = "source"
	CodeActionKindSourceFixAll   CodeActionKind = "source.fixAll"
	CodeActionKindRefactorInline CodeActionKind = "refactor.inline"
)

type TriggerKind int

const (
	TriggerKindInvoked TriggerKind = 1
	TriggerKindAuto    TriggerKind = 2
)

type CodeActionContext struct {
	Diagnostics []Diagnostic     `json:"diagnostics"`
	Only        []CodeActionKind `json:"only,omitempty"`
	TriggerKind TriggerKind      `json:"triggerKind,omitempty"`
}

// Allows reports whether kind passes the client's Only filter.
func (c CodeActionContext) Allows(kind CodeActionKind) bool {
	if len(c.Only) == 0 {
		return true
	}
	for _, only := range c.Only {
		if kind == only || strings.HasPrefix(string(kind), string(only)+".") {
			return true
		}
	}
	return false
}

type CodeAction struct {
	// A short, human-readable, title for this code action.
	Title string `json:"title"`
	// The kind of the code action. Used to filter code actions.
	Kind CodeActionKind `json:"kind"`
	// The workspace edit this code action performs.
	Edit *WorkspaceEdit `json:"edit,omitempty"`
	// The diagnostics that this code action resolves
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
	IsPreferred bool             `json:"isPreferred,omitempty"`
	Command     *Command         `json:"command,omitempty"`
	Data        *json.RawMessage `json:"data,omitempty"`
}

// CodeActionResolveData is carried in CodeAction.Data for actions whose
// edit is computed by codeAction/resolve.
type CodeActionResolveData struct {
	URI     DocumentURI `json:"uri"`
	Version int32       `json:"version"`
	Offset  int         `json:"offset"`
	Code    int         `json:"code"`
}

type Command struct {
	Title     string `json:"title"`
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}
