package server

import (
	"net/http"
)

var resources = []Resource{
	{URI: "ghl://contacts", Name: "GoHighLevel Contacts", Description: "Access to GHL contact management", MimeType: "application/json"},
	{URI: "ghl://opportunities", Name: "GoHighLevel Opportunities", Description: "Access to GHL opportunity pipeline", MimeType: "application/json"},
	{URI: "ghl://pipelines", Name: "GoHighLevel Pipelines", Description: "Access to GHL funnel and pipeline data", MimeType: "application/json"},
}

var resourceText = map[string]string{
	"ghl://contacts":      "GoHighLevel Contacts Resource - Use get_contact_info or search_contacts tools",
	"ghl://opportunities": "GoHighLevel Opportunities Resource - Use list_opportunities tool",
	"ghl://pipelines":     "GoHighLevel Pipelines Resource - Use get_pipeline_info tool",
}

func (s *Server) handleListResources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

func (s *Server) handleReadResource(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	text, ok := resourceText[uri]
	if !ok {
		s.writeError(w, r, &UnknownResourceError{URI: uri})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"uri":      uri,
		"mimeType": "text/plain",
		"text":     text,
	})
}
