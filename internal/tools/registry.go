// Package tools defines the GoHighLevel tools exposed over MCP and the registry that dispatches them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/url"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Caller is the part of the GoHighLevel client the tools need.
type Caller interface {
	Call(ctx context.Context, method, path string, params url.Values, body any) (any, error)
	TriggerWebhook(ctx context.Context, target string, payload any) (any, error)
}

// Arguments are the decoded arguments of one tool call.
type Arguments map[string]any

// Handler performs the upstream call for a tool. Arguments have already been validated against the schema.
type Handler func(ctx context.Context, c Caller, args Arguments) (any, error)

// Definition describes one tool.
type Definition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
}

// Descriptor is the discovery view of a tool. The schema is emitted under both input_schema and the MCP
// inputSchema key.
type Descriptor struct {
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	InputSchema    *jsonschema.Schema `json:"input_schema"`
	MCPInputSchema *jsonschema.Schema `json:"inputSchema"`
}

// Registry maps tool names to definitions. It is built once and only read afterwards.
type Registry struct {
	client Caller
	order  []string
	defs   map[string]Definition
}

// NewRegistry registers defs in order. A duplicate or unnamed definition is a programming error and panics.
func NewRegistry(client Caller, defs ...Definition) *Registry {
	r := &Registry{client: client, defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if def.Name == "" || def.Handler == nil || def.InputSchema == nil {
			panic(fmt.Sprintf("tools: incomplete definition %q", def.Name))
		}
		if _, dup := r.defs[def.Name]; dup {
			panic(fmt.Sprintf("tools: duplicate tool %q", def.Name))
		}
		r.defs[def.Name] = def
		r.order = append(r.order, def.Name)
	}
	return r
}

// Default returns a registry holding every GoHighLevel tool.
func Default(client Caller) *Registry {
	return NewRegistry(client, Definitions()...)
}

// List returns the tools in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		def := r.defs[name]
		out = append(out, Descriptor{
			Name:           def.Name,
			Description:    def.Description,
			InputSchema:    def.InputSchema,
			MCPInputSchema: def.InputSchema,
		})
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Invoke validates args and runs the named tool. Upstream errors are returned unmodified.
func (r *Registry) Invoke(ctx context.Context, name string, args Arguments) (any, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if args == nil {
		args = Arguments{}
	}
	if err := validate(def.InputSchema, args); err != nil {
		return nil, err
	}
	return def.Handler(ctx, r.client, args)
}

// validate checks required presence first, in schema order, then the JSON type and bounds of every known argument.
func validate(schema *jsonschema.Schema, args Arguments) error {
	for _, field := range schema.Required {
		v, ok := args[field]
		if !ok || v == nil {
			return missingArgument(field)
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return missingArgument(field)
		}
	}
	for _, field := range slices.Sorted(maps.Keys(schema.Properties)) {
		prop, v := schema.Properties[field], args[field]
		if prop == nil || v == nil {
			continue
		}
		if err := checkType(field, prop, v); err != nil {
			return err
		}
	}
	return nil
}

func checkType(field string, prop *jsonschema.Schema, v any) error {
	switch prop.Type {
	case "string":
		if _, ok := v.(string); !ok {
			return invalidArgument(field, "must be a string")
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return invalidArgument(field, "must be an object")
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return invalidArgument(field, "must be a boolean")
		}
	case "number", "integer":
		n, ok := toFloat(v)
		if !ok {
			return invalidArgument(field, "must be a %s", prop.Type)
		}
		if prop.Type == "integer" && n != math.Trunc(n) {
			return invalidArgument(field, "must be an integer")
		}
		if prop.Minimum != nil && n < *prop.Minimum {
			return invalidArgument(field, "must be >= %v", *prop.Minimum)
		}
		if prop.Maximum != nil && n > *prop.Maximum {
			return invalidArgument(field, "must be <= %v", *prop.Maximum)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// String returns the named argument, or "" when absent.
func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns the named argument, or def when absent.
func (a Arguments) Int(name string, def int) int {
	if f, ok := toFloat(a[name]); ok {
		return int(f)
	}
	return def
}

// Float returns the named argument and whether it was present.
func (a Arguments) Float(name string) (float64, bool) {
	return toFloat(a[name])
}

// Object returns the named argument, or nil when absent.
func (a Arguments) Object(name string) map[string]any {
	m, _ := a[name].(map[string]any)
	return m
}
