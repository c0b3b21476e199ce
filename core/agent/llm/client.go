package llm

import (
	"context"

	"campaign_worker/core/agent/tools"
	"campaign_worker/pkg/httputil"

	"github.com/goccy/go-json"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

// Client wraps the text-generation provider. The API key is carried by
// the client instance, never written into process-wide state.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

type ClientConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	oaConfig := openai.DefaultConfig(cfg.APIKey)
	oaConfig.HTTPClient = httputil.OpenAIClient()

	return &Client{
		client:      openai.NewClientWithConfig(oaConfig),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
	}
}

// CompleteWithSystem runs a single system+user completion.
func (c *Client) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteWithTools runs a bounded function-calling loop: the model may
// request tool calls, each is executed through run and fed back, until the
// model produces plain text or maxSteps completions have been spent. The
// transcript keeps every executed call so callers can inspect results.
func (c *Client) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, defs []tools.ToolDefinition, run tools.RunFunc, maxSteps int) (*tools.Transcript, error) {
	if maxSteps <= 0 {
		maxSteps = 5
	}

	oaTools := make([]openai.Tool, len(defs))
	for i, d := range defs {
		oaTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}

	transcript := &tools.Transcript{}

	for step := 0; step < maxSteps; step++ {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			Messages:    messages,
			Tools:       oaTools,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return transcript, nil
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			transcript.Content = msg.Content
			return transcript, nil
		}

		messages = append(messages, msg)

		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
			call := tools.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args}
			result := run(ctx, call)
			transcript.Calls = append(transcript.Calls, tools.ExecutedCall{Call: call, Result: result})

			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"success":false,"error":"unserializable tool result"}`)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(payload),
				ToolCallID: tc.ID,
			})
		}
	}

	// Step budget spent: one last completion without tools to force text.
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) > 0 {
		transcript.Content = resp.Choices[0].Message.Content
	}
	return transcript, nil
}
