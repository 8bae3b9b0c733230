package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// WireError is the structured error of a jsonrpc response.
type WireError struct {
	// Code is an error code indicating the type of failure.
	Code int64 `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data is optional structured data containing additional information about the error.
	Data *json.RawMessage `json:"data,omitempty"`
}

// NewError returns an error that will encode on the wire correctly.
func NewError(code int64, message string) *WireError {
	return &WireError{Code: code, Message: message}
}

func (e *WireError) Error() string { return e.Message }

// Is matches errors with the same code, so an error decoded from the wire
// compares equal to the sentinel it was built from.
func (e *WireError) Is(target error) bool {
	t, ok := target.(*WireError)
	return ok && t.Code == e.Code
}

var (
	// ErrUnknown should be used for all non coded errors.
	ErrUnknown = NewError(-32001, "JSON RPC unknown error")
	// ErrParse is used when invalid JSON was received by the server.
	ErrParse = NewError(-32700, "JSON RPC parse error")
	// ErrInvalidRequest is used when the JSON sent is not a valid Request object.
	ErrInvalidRequest = NewError(-32600, "JSON RPC invalid request")
	// ErrMethodNotFound should be returned by the handler when the method does
	// not exist / is not available.
	ErrMethodNotFound = NewError(-32601, "JSON RPC method not found")
	// ErrInvalidParams should be returned by the handler when method
	// parameter(s) were invalid.
	ErrInvalidParams = NewError(-32602, "JSON RPC invalid params")
	// ErrInternal indicates a failure to process a call correctly
	ErrInternal = NewError(-32603, "JSON RPC internal error")
	// ErrServerNotInitialized is returned for requests received before
	// initialize.
	ErrServerNotInitialized = NewError(-32002, "JSON RPC server not initialized")
	// ErrServerOverloaded is returned when a message was refused due to a
	// server being temporarily unable to accept any new messages.
	ErrServerOverloaded = NewError(-32000, "JSON RPC overloaded")
	// ErrRequestCancelled is returned for calls the client cancelled.
	ErrRequestCancelled = NewError(-32800, "JSON RPC cancelled")
	// ErrContentModified is returned when the document changed after the
	// request was computed.
	ErrContentModified = NewError(-32801, "content modified")
)

// toWireError keeps the code of the first WireError in the chain and the
// full message of err.
func toWireError(err error) *WireError {
	if err == nil {
		return nil
	}
	var we *WireError
	if errors.As(err, &we) {
		return &WireError{Code: we.Code, Message: err.Error(), Data: we.Data}
	}
	return &WireError{Code: ErrUnknown.Code, Message: err.Error()}
}

// Handler is invoked to handle incoming requests.
// The Replier sends a reply to the request and must be called exactly once.
type Handler func(ctx context.Context, reply Replier, req Request) error

// Replier is passed to handlers to allow them to reply to the request.
// If err is set then result will be ignored.
type Replier func(ctx context.Context, result any, err error) error

// MethodNotFound is a Handler that replies to all call requests with the
// standard method not found response.
// This should normally be the final handler in a chain.
func MethodNotFound(ctx context.Context, reply Replier, req Request) error {
	return reply(ctx, nil, fmt.Errorf("%w: %q", ErrMethodNotFound, req.Method()))
}
