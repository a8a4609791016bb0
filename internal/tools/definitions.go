package tools

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool names.
const (
	GetContactInfo       = "get_contact_info"
	ListOpportunities    = "list_opportunities"
	TriggerWebhook       = "trigger_webhook"
	GetPipelineInfo      = "get_pipeline_info"
	CreateNote           = "create_note"
	SearchContacts       = "search_contacts"
	GetContactActivities = "get_contact_activities"
	CreateOpportunity    = "create_opportunity"
)

const defaultSearchLimit = 100

// Definitions returns every GoHighLevel tool in the order it is advertised.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        GetContactInfo,
			Description: "Fetch detailed contact information from GoHighLevel, including name, email, phone and tags.",
			InputSchema: object([]string{"contact_id"}, map[string]*jsonschema.Schema{
				"contact_id": str("The unique identifier for the contact"),
			}),
			Handler: getContactInfo,
		},
		{
			Name:        ListOpportunities,
			Description: "List opportunities in the GoHighLevel sub-account, optionally filtered by pipeline.",
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"pipeline_id": str("Optional pipeline ID to filter opportunities"),
			}),
			Handler: listOpportunities,
		},
		{
			Name:        TriggerWebhook,
			Description: "Trigger a custom workflow webhook in GoHighLevel.",
			InputSchema: object([]string{"webhook_url"}, map[string]*jsonschema.Schema{
				"webhook_url": str("The webhook URL to trigger, or the ID of an inbound webhook trigger"),
				"payload":     {Type: "object", Description: "Data to send to the webhook"},
			}),
			Handler: triggerWebhook,
		},
		{
			Name:        GetPipelineInfo,
			Description: "Retrieve funnel/pipeline structure and stages from GoHighLevel.",
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"pipeline_id": str("Optional pipeline ID; all pipelines are returned when omitted"),
			}),
			Handler: getPipelineInfo,
		},
		{
			Name:        CreateNote,
			Description: "Create a note on a specific contact in GoHighLevel.",
			InputSchema: object([]string{"contact_id", "note_content"}, map[string]*jsonschema.Schema{
				"contact_id":   str("The unique identifier for the contact"),
				"note_content": str("The content of the note to create"),
			}),
			Handler: createNote,
		},
		{
			Name:        SearchContacts,
			Description: "Search for contacts in GoHighLevel by free text, email or phone.",
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"query": str("General search query"),
				"email": str("Email address to search for"),
				"phone": str("Phone number to search for"),
				"limit": {
					Type:        "integer",
					Description: "Maximum number of results to return (default 100)",
					Minimum:     bound(1),
					Maximum:     bound(defaultSearchLimit),
				},
			}),
			Handler: searchContacts,
		},
		{
			Name:        GetContactActivities,
			Description: "Get the activity timeline for a specific contact in GoHighLevel.",
			InputSchema: object([]string{"contact_id"}, map[string]*jsonschema.Schema{
				"contact_id": str("The unique identifier for the contact"),
			}),
			Handler: getContactActivities,
		},
		{
			Name:        CreateOpportunity,
			Description: "Create a new opportunity in a GoHighLevel pipeline.",
			InputSchema: object([]string{"contact_id", "pipeline_id", "stage_id", "title"}, map[string]*jsonschema.Schema{
				"contact_id":  str("The contact to associate with this opportunity"),
				"pipeline_id": str("The pipeline to place this opportunity in"),
				"stage_id":    str("The initial stage for this opportunity"),
				"title":       str("Title of the opportunity"),
				"value":       {Type: "number", Description: "Optional monetary value of the opportunity"},
			}),
			Handler: createOpportunity,
		},
	}
}

// pathSegment returns the escaped id argument for use as one upstream path segment.
func pathSegment(args Arguments, field string) (string, error) {
	id := args.String(field)
	if id == "." || id == ".." || strings.Contains(id, "/") {
		return "", invalidArgument(field, "must be a single path segment")
	}
	return url.PathEscape(id), nil
}

func getContactInfo(ctx context.Context, c Caller, args Arguments) (any, error) {
	id, err := pathSegment(args, "contact_id")
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, http.MethodGet, "/contacts/"+id, nil, nil)
}

func listOpportunities(ctx context.Context, c Caller, args Arguments) (any, error) {
	params := url.Values{}
	if id := args.String("pipeline_id"); id != "" {
		params.Set("pipelineId", id)
	}
	return c.Call(ctx, http.MethodGet, "/opportunities/", params, nil)
}

func triggerWebhook(ctx context.Context, c Caller, args Arguments) (any, error) {
	target := strings.TrimSpace(args.String("webhook_url"))
	if strings.Contains(target, "://") {
		u, err := url.ParseRequestURI(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, invalidArgument("webhook_url", "must be an http(s) URL or a webhook id")
		}
	}
	var payload any
	if p := args.Object("payload"); p != nil {
		payload = p
	}
	return c.TriggerWebhook(ctx, target, payload)
}

func getPipelineInfo(ctx context.Context, c Caller, args Arguments) (any, error) {
	id, err := pathSegment(args, "pipeline_id")
	if err != nil {
		return nil, err
	}
	path := "/funnels/" + id
	return c.Call(ctx, http.MethodGet, path, nil, nil)
}

func createNote(ctx context.Context, c Caller, args Arguments) (any, error) {
	id, err := pathSegment(args, "contact_id")
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"body":      args.String("note_content"),
		"contactId": args.String("contact_id"),
	}
	return c.Call(ctx, http.MethodPost, "/contacts/"+id+"/notes", nil, body)
}

func searchContacts(ctx context.Context, c Caller, args Arguments) (any, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(args.Int("limit", defaultSearchLimit)))
	for _, key := range []string{"query", "email", "phone"} {
		if v := args.String(key); v != "" {
			params.Set(key, v)
		}
	}
	return c.Call(ctx, http.MethodGet, "/contacts/", params, nil)
}

func getContactActivities(ctx context.Context, c Caller, args Arguments) (any, error) {
	id, err := pathSegment(args, "contact_id")
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, http.MethodGet, "/contacts/"+id+"/activities", nil, nil)
}

func createOpportunity(ctx context.Context, c Caller, args Arguments) (any, error) {
	body := map[string]any{
		"contactId":       args.String("contact_id"),
		"pipelineId":      args.String("pipeline_id"),
		"pipelineStageId": args.String("stage_id"),
		"title":           args.String("title"),
	}
	// A zero value is left unset upstream.
	if v, ok := args.Float("value"); ok && v != 0 {
		body["monetaryValue"] = v
	}
	return c.Call(ctx, http.MethodPost, "/opportunities/", nil, body)
}

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func bound(v float64) *float64 { return &v }
