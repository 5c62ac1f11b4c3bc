package mind

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// FuncTool declares one callable operation to the backend: a name, a spoken
// description, and a JSON schema for its argument object.
type FuncTool struct {
	Name        string
	Description string
	Argument    *jsonschema.Schema
}

// NewFuncTool declares a tool whose argument schema is derived from ArgType.
func NewFuncTool[ArgType any](name, description string) (*FuncTool, error) {
	arg, err := jsonschema.For[ArgType](nil)
	if err != nil {
		return nil, fmt.Errorf("mind: tool %s: %w", name, err)
	}
	return &FuncTool{
		Name:        name,
		Description: description,
		Argument:    arg,
	}, nil
}

// MustNewFuncTool is NewFuncTool that panics on schema errors. Tool
// declarations are package-level constants; a bad one is a programming error.
func MustNewFuncTool[ArgType any](name, description string) *FuncTool {
	tool, err := NewFuncTool[ArgType](name, description)
	if err != nil {
		panic(err)
	}
	return tool
}

// UnmarshalArgs decodes a function call's JSON arguments into v, repairing
// malformed model-produced JSON when necessary.
func (c *FuncCall) UnmarshalArgs(v any) error {
	if err := unmarshalJSON([]byte(c.Arguments), v); err != nil {
		return fmt.Errorf("mind: %s arguments %q: %w", c.Name, c.Arguments, err)
	}
	return nil
}
