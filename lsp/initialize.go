package lsp

import "encoding/json"

// PositionEncodingKind is the unit of Position.Character.
type PositionEncodingKind string

const (
	PositionEncodingUTF8  PositionEncodingKind = "utf-8"
	PositionEncodingUTF16 PositionEncodingKind = "utf-16"
	PositionEncodingUTF32 PositionEncodingKind = "utf-32"
)

type InitializeRequestParams struct {
	WorkDoneProgressCreateParams
	ClientInfo            *ClientInfo        `json:"clientInfo"`
	RootURI               DocumentURI        `json:"rootUri"`
	Capabilities          ClientCapabilities `json:"capabilities"`
	InitializationOptions json.RawMessage    `json:"initializationOptions,omitempty"`
	// ... there's tons more that goes here
}

type InitializedParams struct{}

type ClientCapabilities struct {
	Window       ClientWindowCapabilities       `json:"window"`
	General      ClientGeneralCapabilities      `json:"general"`
	Workspace    ClientWorkspaceCapabilities    `json:"workspace"`
	TextDocument ClientTextDocumentCapabilities `json:"textDocument"`
}

type ClientWindowCapabilities struct {
	WorkDoneProgress bool `json:"workDoneProgress"`
}

type ClientGeneralCapabilities struct {
	// PositionEncodings lists the encodings the client supports, in order
	// of preference.
	PositionEncodings []PositionEncodingKind `json:"positionEncodings,omitempty"`
}

type ClientWorkspaceCapabilities struct {
	Configuration bool `json:"configuration"`
}

type ClientTextDocumentCapabilities struct {
	CodeAction ClientCodeActionCapabilities `json:"codeAction"`
}

type ClientCodeActionCapabilities struct {
	ResolveSupport *CodeActionResolveSupport `json:"resolveSupport,omitempty"`
}

type CodeActionResolveSupport struct {
	Properties []string `json:"properties"`
}

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

type WorkDoneProgressOptions struct {
	WorkDoneProgress bool `json:"workDoneProgress"`
}

type CodeActionProviderOptions struct {
	CodeActionKinds []CodeActionKind `json:"codeActionKinds"`
	ResolveProvider bool             `json:"resolveProvider"`
}

type TextDocumentSyncKind int

const (
	TextDocumentSyncNone TextDocumentSyncKind = iota
	TextDocumentSyncFull
	TextDocumentSyncIncremental
)

type SaveOptions struct {
	IncludeText bool `json:"includeText"`
}

type TextDocumentSyncOptions struct {
	OpenClose bool                 `json:"openClose"`
	Change    TextDocumentSyncKind `json:"change"`
	Save      *SaveOptions         `json:"save,omitempty"`
}

type ExecuteCommandOptions struct {
	Commands []string `json:"commands"`
}

type ServerCapabilities struct {
	PositionEncoding       PositionEncodingKind      `json:"positionEncoding,omitempty"`
	TextDocumentSync       TextDocumentSyncOptions   `json:"textDocumentSync"`
	CodeActionProvider     CodeActionProviderOptions `json:"codeActionProvider"`
	ExecuteCommandProvider ExecuteCommandOptions     `json:"executeCommandProvider"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
