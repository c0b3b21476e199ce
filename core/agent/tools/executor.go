package tools

import (
	"context"
	"fmt"
)

// Executor wraps the Registry and provides validated tool execution.
type Executor struct {
	registry *Registry
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs a single tool by name. Lookup and validation failures come
// back as failed results, never as errors: the model gets to see them.
func (e *Executor) Execute(ctx context.Context, userID string, call *ToolCall) *ToolResult {
	tool, err := e.registry.Get(call.Name)
	if err != nil {
		return &ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool not found: %s", call.Name),
		}
	}

	for _, param := range tool.Parameters() {
		if param.Required {
			if _, ok := call.Args[param.Name]; !ok {
				return &ToolResult{
					Success: false,
					Error:   fmt.Sprintf("missing required parameter: %s", param.Name),
				}
			}
		}
	}

	result, err := tool.Execute(ctx, userID, call.Args)
	if err != nil {
		return &ToolResult{Success: false, Error: err.Error()}
	}
	return result
}

// Runner binds the executor to one user for use in a model loop.
func (e *Executor) Runner(userID string) RunFunc {
	return func(ctx context.Context, call ToolCall) *ToolResult {
		return e.Execute(ctx, userID, &call)
	}
}

// GetAvailableTools returns all available tool definitions.
func (e *Executor) GetAvailableTools() []ToolDefinition {
	return e.registry.GetDefinitions()
}
