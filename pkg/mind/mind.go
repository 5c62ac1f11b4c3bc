// Package mind abstracts the reasoning backend of the pendant: a single
// Generate call that accepts text, audio, and image content plus a tool
// catalog, and returns either plain text or one function-call directive.
//
// Two backends are provided: Gemini (the default) and OpenAI-compatible
// chat completion APIs. Both are selected by configuration.
package mind

import "context"

// Roles of request messages.
const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Role identifies the author of a request message.
type Role string

// Blob is inline binary content (recorded audio, a camera frame).
type Blob struct {
	MIMEType string
	Data     []byte
}

// FuncCall is a function-call directive produced by the backend: the tool
// name and its arguments as a raw JSON object.
type FuncCall struct {
	Name      string
	Arguments string
}

// FuncResponse carries a tool's stringified result back to the backend for
// summarization.
type FuncResponse struct {
	Name   string
	Result string
}

// Message is one entry of the request context. Exactly one of the payload
// groups is set: Text and/or Blobs, or Call, or Response.
type Message struct {
	Role     Role
	Text     string
	Blobs    []*Blob
	Call     *FuncCall
	Response *FuncResponse
}

// Request is the full context of one Generate call.
type Request struct {
	// System is the system instruction, empty for none.
	System string

	// Messages is the role-tagged context, oldest first.
	Messages []*Message

	// Tools is the declared tool catalog, nil to disable function calling.
	Tools []*FuncTool

	// MaxTokens caps the generated output length. Zero means backend default.
	MaxTokens int
}

// Reply is the outcome of a Generate call: plain text, or one function-call
// directive. When the backend proposes several calls only the first is
// surfaced; the pendant dispatches at most one tool per turn.
type Reply struct {
	Text string
	Call *FuncCall
}

// Generator is the reasoning backend. Implementations block for the duration
// of the call and honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Reply, error)
}
