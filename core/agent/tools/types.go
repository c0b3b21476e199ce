package tools

import "context"

// Tool is a function the reply agent may let the model invoke.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ParameterSpec
	Execute(ctx context.Context, userID string, args map[string]any) (*ToolResult, error)
}

// ParameterSpec defines one tool parameter.
type ParameterSpec struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, boolean, array, object
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToolDefinition describes a tool in function-calling format.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is the JSON-schema object the model receives.
type ToolParameters struct {
	Type       string                       `json:"type"`
	Properties map[string]ParameterProperty `json:"properties"`
	Required   []string                     `json:"required"`
}

// ParameterProperty is one schema property.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ExecutedCall pairs a tool call with its result.
type ExecutedCall struct {
	Call   ToolCall    `json:"call"`
	Result *ToolResult `json:"result"`
}

// Transcript is what a bounded tool-calling run produced: the final text
// plus every tool call executed along the way.
type Transcript struct {
	Content string         `json:"content"`
	Calls   []ExecutedCall `json:"calls"`
}

// RunFunc executes one tool call on behalf of the model loop.
type RunFunc func(ctx context.Context, call ToolCall) *ToolResult

// ConvertToDefinition converts a Tool to its function-calling definition.
func ConvertToDefinition(t Tool) ToolDefinition {
	properties := make(map[string]ParameterProperty)
	required := []string{}

	for _, p := range t.Parameters() {
		properties[p.Name] = ParameterProperty{
			Type:        p.Type,
			Description: p.Description,
			Enum:        p.Enum,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: ToolParameters{
			Type:       "object",
			Properties: properties,
			Required:   required,
		},
	}
}
