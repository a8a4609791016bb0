package server

import "ghl-mcp/internal/tools"

// CallRequest is the body of a tool invocation. ToolName is accepted for clients of the older
// /mcp/call_tool endpoint.
type CallRequest struct {
	Name      string          `json:"name"`
	ToolName  string          `json:"tool_name"`
	Arguments tools.Arguments `json:"arguments"`
}

// CallResult wraps a successful tool result.
type CallResult struct {
	Result any `json:"result"`
}

// ErrorBody is the structured error returned at the protocol boundary.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"status,omitempty"`
	Body    any    `json:"body,omitempty"`
}

// ErrorResponse wraps an ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ToolList is the discovery response.
type ToolList struct {
	Tools []tools.Descriptor `json:"tools"`
}

// Resource describes a read-only MCP resource.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}
