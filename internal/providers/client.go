package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an OpenAI-compatible chat-completions client bound to one
// (provider, model) pair. This works with OpenAI, OpenRouter, DeepSeek, Groq
// and any OpenAI-compatible endpoint.
//
// Ordinary provider-side failures (auth, rate limit, network, malformed
// response) never surface as Go errors; they come back as error-shaped
// responses per the backend contract.
type Client struct {
	providerName string
	model        string
	apiKey       string
	apiBase      string
	extraHeaders map[string]string
	httpClient   *http.Client
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Tools       []ToolDef `json:"tools,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
}

type chatCompletionError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// NewClient creates a client bound to one provider and model. When apiBase is
// empty the registry default for the provider is used (standard providers
// resolve their endpoint here; gateways resolve theirs in the directory).
func NewClient(providerName, model string, settings ProviderSettings) *Client {
	apiBase := settings.APIBase
	if apiBase == "" {
		if spec := FindByName(providerName); spec != nil {
			apiBase = spec.DefaultAPIBase
		}
	}
	return &Client{
		providerName: providerName,
		model:        model,
		apiKey:       settings.APIKey,
		apiBase:      apiBase,
		extraHeaders: settings.ExtraHeaders,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *Client) ProviderName() string { return c.providerName }

// Chat performs one chat-completions call. The returned response always has
// Provider/Model stamped; failures are error-shaped responses, never errors.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []ToolDef, model string, maxTokens int, temperature float64) *Response {
	if model == "" {
		model = c.model
	}

	body := chatCompletionRequest{
		Model:       stripProviderPrefix(model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Tools:       tools,
		Stream:      false,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return c.failure(ErrKindBadRequest, fmt.Sprintf("marshal request: %v", err), model)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return c.failure(ErrKindBadRequest, fmt.Sprintf("create request: %v", err), model)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := ErrKindNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = ErrKindTimeout
		}
		return c.failure(kind, fmt.Sprintf("http request: %v", err), model)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(ErrKindNetwork, fmt.Sprintf("read response: %v", err), model)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr chatCompletionError
		_ = json.Unmarshal(respBody, &apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return c.failure(classifyStatus(resp.StatusCode), fmt.Sprintf("API error %d: %s", resp.StatusCode, msg), model)
	}

	var apiResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return c.failure(ErrKindDecode, fmt.Sprintf("unmarshal response: %v", err), model)
	}
	if len(apiResp.Choices) == 0 {
		return c.failure(ErrKindDecode, "no choices in response", model)
	}

	choice := apiResp.Choices[0]
	toolCalls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if len(toolCalls) == 0 {
		toolCalls = nil
	}

	return &Response{
		Content:      choice.Message.Content,
		ToolCalls:    toolCalls,
		FinishReason: choice.FinishReason,
		Model:        apiResp.Model,
		Provider:     c.providerName,
		Usage: Usage{
			InputTokens:  apiResp.Usage.PromptTokens,
			OutputTokens: apiResp.Usage.CompletionTokens,
		},
		CachedTokens: apiResp.Usage.PromptTokensDetails.CachedTokens,
	}
}

func (c *Client) failure(kind ErrorKind, msg, model string) *Response {
	return errorResponse(kind, msg, model, c.providerName)
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrKindAuth
	case status == http.StatusTooManyRequests:
		return ErrKindRateLimited
	case status == http.StatusRequestTimeout:
		return ErrKindTimeout
	case status >= 500:
		return ErrKindServer
	default:
		return ErrKindBadRequest
	}
}

// stripProviderPrefix drops an explicit "provider/" prefix from a model id
// before it goes on the wire. Gateway model ids (e.g. openrouter paths) keep
// theirs: only known provider names are stripped.
func stripProviderPrefix(model string) string {
	prefix, rest, ok := strings.Cut(model, "/")
	if !ok {
		return model
	}
	if spec := FindByName(prefix); spec != nil && !spec.Gateway {
		return rest
	}
	return model
}
