package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ghl-mcp/internal/ghl"
	"ghl-mcp/internal/tools"
)

// UnknownResourceError is returned when a resource URI is not served.
type UnknownResourceError struct {
	URI string
}

func (e *UnknownResourceError) Error() string { return fmt.Sprintf("unknown resource: %q", e.URI) }

// Kind names the error category reported to callers.
func (e *UnknownResourceError) Kind() string { return "UnknownResourceError" }

// errorBody maps an error onto its HTTP status and wire representation.
func errorBody(err error) (int, ErrorBody) {
	var (
		validationErr  *tools.ValidationError
		unknownToolErr *tools.UnknownToolError
		upstreamErr    *ghl.UpstreamError
		transportErr   *ghl.TransportError
		decodeErr      *ghl.DecodeError
		resourceErr    *UnknownResourceError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorBody{Kind: validationErr.Kind(), Message: validationErr.Error(), Field: validationErr.Field}
	case errors.As(err, &unknownToolErr):
		return http.StatusNotFound, ErrorBody{Kind: unknownToolErr.Kind(), Message: unknownToolErr.Error()}
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, ErrorBody{
			Kind:    upstreamErr.Kind(),
			Message: upstreamErr.Error(),
			Status:  upstreamErr.StatusCode,
			Body:    rawBody(upstreamErr.Body),
		}
	case errors.As(err, &transportErr):
		status := http.StatusBadGateway
		if transportErr.Timeout() {
			status = http.StatusGatewayTimeout
		}
		return status, ErrorBody{Kind: transportErr.Kind(), Message: transportErr.Error()}
	case errors.As(err, &decodeErr):
		return http.StatusBadGateway, ErrorBody{Kind: decodeErr.Kind(), Message: decodeErr.Error(), Status: decodeErr.StatusCode}
	case errors.As(err, &resourceErr):
		return http.StatusNotFound, ErrorBody{Kind: resourceErr.Kind(), Message: resourceErr.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Kind: "InternalError", Message: err.Error()}
	}
}

// rawBody embeds a JSON body verbatim and falls back to text.
func rawBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
