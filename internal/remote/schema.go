package remote

// Parameter is one named argument of a tool.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolSchema advertises a tool to the runtime. Parameters keep declaration order.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Object renders the JSON-schema-like parameter object expected by hosted APIs:
//
//	{"type":"object","properties":{"p":{"type":..,"description":..}},"required":["p"]}
func (s ToolSchema) Object() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	required := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// RequiredNames returns the names of required parameters in declaration order.
func (s ToolSchema) RequiredNames() []string {
	var out []string
	for _, p := range s.Parameters {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}
