package tools

import "fmt"

// ValidationError reports a missing or malformed tool argument. No upstream call is made when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func missingArgument(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "missing required argument: " + field}
}

func invalidArgument(field, format string, a ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("argument %s "+format, append([]any{field}, a...)...)}
}

func (e *ValidationError) Error() string { return e.Message }

// Kind names the error category reported to callers.
func (e *ValidationError) Kind() string { return "ValidationError" }

// UnknownToolError is returned when a tool name is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string { return fmt.Sprintf("unknown tool: %q", e.Name) }

// Kind names the error category reported to callers.
func (e *UnknownToolError) Kind() string { return "UnknownToolError" }
