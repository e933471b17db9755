// Package tools defines the tool catalogue declaratively and registers each
// tool on the HTTP dispatcher and the MCP server with shared instrumentation.
package tools

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to a service method with matching Args/Result types.
type ToolSpec struct {
	// Name is the tool name used in the {tool, params} envelope and over MCP
	Name string

	// Method selects the service method that implements the tool
	Method string

	// Description is shown to LLMs choosing a tool
	Description string

	Title string

	// Category groups tools for metrics and evals (weather, chat, messaging)
	Category string

	// Parameters is the JSON schema the dispatcher validates params against
	Parameters map[string]any

	ReadOnly    bool
	Destructive bool
	Idempotent  bool
	OpenWorld   bool
}

// SpecByName returns the spec registered under name.
func SpecByName(name string) (ToolSpec, bool) {
	for _, s := range AllTools {
		if s.Name == name {
			return s, true
		}
	}
	return ToolSpec{}, false
}

// Names returns the names of all tools in declaration order.
func Names() []string {
	out := make([]string, len(AllTools))
	for i, s := range AllTools {
		out[i] = s.Name
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

// objectSchema builds a JSON schema for an object whose listed string
// properties are all required and non-empty.
func objectSchema(props ...[2]string) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]any, 0, len(props))
	for _, p := range props {
		properties[p[0]] = map[string]any{
			"type":        "string",
			"minLength":   1,
			"description": p[1],
		}
		required = append(required, p[0])
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
