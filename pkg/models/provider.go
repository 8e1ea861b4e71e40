package models

// ModelInfo describes a single model offered by a provider.
type ModelInfo struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	ContextLength     int     `json:"context_length"`
	SupportsTools     bool    `json:"supports_tools"`
	SupportsStreaming bool    `json:"supports_streaming"`
	CostPerInputTok   float64 `json:"cost_per_input_token,omitempty"`
	CostPerOutputTok  float64 `json:"cost_per_output_token,omitempty"`
}

// ProviderInfo describes a provider and the models it exposes.
type ProviderInfo struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	RequiresAuth bool        `json:"requires_auth"`
	AuthURL      string      `json:"auth_url,omitempty"`
	Models       []ModelInfo `json:"models"`
}

// FunctionCall is the function portion of a model-emitted tool call.
// Arguments is a JSON-encoded object.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a structured tool invocation request emitted by a model.
type ToolCall struct {
	ID       string       `json:"id"`
	Function FunctionCall `json:"function"`
}

// Usage reports token accounting for one provider invocation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
