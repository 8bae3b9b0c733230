package lsp

import "encoding/json"

type LSPAny = any

type ParamConfiguration struct {
	Items []ConfigurationItem `json:"items"`
}

type ConfigurationItem struct {
	ScopeURI *DocumentURI `json:"scopeUri,omitempty"`
	Section  *string      `json:"section,omitempty"`
}

type DidChangeConfigurationParams struct {
	// Settings may be null when the client expects the server to pull
	// with workspace/configuration.
	Settings json.RawMessage `json:"settings"`
}

type ExecuteCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}
