package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

// ToolFunc runs one tool call with the raw JSON object the agent supplied.
type ToolFunc func(ctx context.Context, input json.RawMessage) (string, error)

type ToolDefinition struct {
	Name        string
	Description string
	InputSchema Schema
	Function    ToolFunc
}

// Property is a single parameter of a tool input.
type Property struct {
	Type        string
	Description string
}

// Schema is the declared input shape of a tool. Properties keep struct field order.
type Schema struct {
	Properties *orderedmap.OrderedMap[string, Property]
	Required   []string
}

// GenerateSchema reflects T into a flat Schema. Fields without omitempty are required.
func GenerateSchema[T any]() Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	reflected := reflector.Reflect(v)

	props := orderedmap.New[string, Property]()
	if reflected.Properties != nil {
		for pair := reflected.Properties.Oldest(); pair != nil; pair = pair.Next() {
			props.Set(pair.Key, Property{Type: pair.Value.Type, Description: pair.Value.Description})
		}
	}
	return Schema{Properties: props, Required: append([]string(nil), reflected.Required...)}
}

// Parameters flattens the schema into the ordered parameter list advertised to the runtime.
func (s Schema) Parameters() []remote.Parameter {
	if s.Properties == nil {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}
	out := make([]remote.Parameter, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, remote.Parameter{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
			Required:    required[pair.Key],
		})
	}
	return out
}

// Schema returns the runtime-facing declaration of the tool.
func (d ToolDefinition) Schema() remote.ToolSchema {
	return remote.ToolSchema{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.InputSchema.Parameters(),
	}
}
