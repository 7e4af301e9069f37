package providers

import (
	"context"
	"strings"
)

// errContentPrefix is the wire-level marker for provider failures. Kept for
// compatibility with externally produced responses; internal classification
// uses the typed Err field.
const errContentPrefix = "Error calling LLM:"

// Message is one chat message. Content is either a plain string or a list of
// typed parts (maps with "type"/"text" keys), matching the wire format.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ToolDef describes one tool offered to the model (OpenAI function format).
type ToolDef struct {
	Type     string      `json:"type"`
	Function ToolFuncDef `json:"function"`
}

type ToolFuncDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage holds token accounting reported by the backend.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// ErrorKind classifies a backend failure.
type ErrorKind string

const (
	ErrKindAuth        ErrorKind = "auth"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindServer      ErrorKind = "server"
	ErrKindBadRequest  ErrorKind = "bad_request"
	ErrKindNetwork     ErrorKind = "network"
	ErrKindDecode      ErrorKind = "decode"
	ErrKindNoRoute     ErrorKind = "no_route"
)

// BackendError is the typed failure a backend client attaches to an
// error-shaped response.
type BackendError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *BackendError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Response is the result of one backend chat attempt. Ordinary provider
// failures are represented as a Response, never as a Go error.
type Response struct {
	Content      string        `json:"content"`
	ToolCalls    []ToolCall    `json:"toolCalls,omitempty"`
	FinishReason string        `json:"finishReason"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Usage        Usage         `json:"usage"`
	CachedTokens int           `json:"cachedTokens"`
	Err          *BackendError `json:"error,omitempty"`
}

// IsError reports whether the response represents a backend failure. The
// typed error wins; the wire shape is checked as a fallback so responses
// produced outside this process classify the same way.
func (r *Response) IsError() bool {
	if r.Err != nil {
		return true
	}
	return r.FinishReason == "error" || strings.HasPrefix(r.Content, errContentPrefix)
}

// errorResponse builds an error-shaped response carrying both the typed
// error and the wire-compatible content prefix.
func errorResponse(kind ErrorKind, msg, model, provider string) *Response {
	return &Response{
		Content:      errContentPrefix + " " + msg,
		FinishReason: "error",
		Model:        model,
		Provider:     provider,
		Err:          &BackendError{Kind: kind, Message: msg},
	}
}

// Backend is the client contract for one (provider, model) pair.
type Backend interface {
	ProviderName() string
	Chat(ctx context.Context, messages []Message, tools []ToolDef, model string, maxTokens int, temperature float64) *Response
}

// ProviderSettings is the configuration surface a client is built from.
type ProviderSettings struct {
	APIKey       string
	APIBase      string
	ExtraHeaders map[string]string
}

// ProviderDirectory is the configuration contract the dispatcher consumes.
type ProviderDirectory interface {
	// ProviderName resolves a model id to a configured provider name, or "".
	ProviderName(model string) string
	// ProviderByName returns the settings for an explicit provider name.
	ProviderByName(name string) (ProviderSettings, bool)
	// APIBaseForProvider resolves the effective API base: explicit override,
	// else a registry default for gateway providers, else "".
	APIBaseForProvider(name, model string) string
}

// extractUserText returns the text of the latest user message, concatenating
// text parts when the content is structured. The latest user message wins
// even when its text is empty.
func extractUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return contentText(messages[i].Content)
		}
	}
	return ""
}

// extractSystemText returns the first system message with string content.
func extractSystemText(messages []Message) string {
	for _, m := range messages {
		if m.Role != "system" {
			continue
		}
		if s, ok := m.Content.(string); ok {
			return s
		}
	}
	return ""
}

func contentText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if part["type"] == "text" {
				if text, ok := part["text"].(string); ok {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}
