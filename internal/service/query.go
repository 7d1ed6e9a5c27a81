package service

import (
	"encoding/json"
	"strings"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

// ToolRequest is the decoded body of a conversational-platform tool call.
// The upstream platform does not fix its request shape, so every field here
// is optional and extraction walks an ordered strategy list.
type ToolRequest struct {
	Query      string       `json:"query"`
	Tenant     string       `json:"tenant"`
	SessionID  string       `json:"sessionId"`
	ToolCallID string       `json:"toolCallId"`
	Message    *ToolMessage `json:"message"`
}

type ToolMessage struct {
	ToolCalls []ToolCall `json:"toolCalls"`
	Call      *CallInfo  `json:"call"`
}

type ToolCall struct {
	ID       string        `json:"id"`
	Function *ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type CallInfo struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistantId"`
}

// queryStrategies are tried in order; the first non-empty result wins.
var queryStrategies = []func(*ToolRequest) string{
	func(r *ToolRequest) string { return r.Query },
	func(r *ToolRequest) string { return r.argumentString("query") },
	func(r *ToolRequest) string { return r.argumentString("question") },
}

// ExtractQuery pulls a non-empty query string out of a tool request. An empty
// result is a caller error, not a retryable condition.
func ExtractQuery(req *ToolRequest) (string, error) {
	if req == nil {
		return "", domain.ErrMissingQuery
	}
	for _, strategy := range queryStrategies {
		if q := strings.TrimSpace(strategy(req)); q != "" {
			return q, nil
		}
	}
	return "", domain.ErrMissingQuery
}

// CallID returns the identifier to echo back in the response envelope.
func (r *ToolRequest) CallID() string {
	if r == nil {
		return ""
	}
	if r.ToolCallID != "" {
		return r.ToolCallID
	}
	if r.Message != nil {
		for _, tc := range r.Message.ToolCalls {
			if tc.ID != "" {
				return tc.ID
			}
		}
	}
	return ""
}

// Session returns the conversation session identifier for memory keying.
func (r *ToolRequest) Session() string {
	if r == nil {
		return ""
	}
	if r.SessionID != "" {
		return r.SessionID
	}
	if r.Message != nil && r.Message.Call != nil {
		return r.Message.Call.ID
	}
	return ""
}

// AssistantID returns the calling assistant identifier, if any.
func (r *ToolRequest) AssistantID() string {
	if r == nil || r.Message == nil || r.Message.Call == nil {
		return ""
	}
	return r.Message.Call.AssistantID
}

// argumentString looks up a string field in the first tool call's arguments,
// tolerating both an arguments object and a JSON-encoded argument string.
func (r *ToolRequest) argumentString(key string) string {
	args := r.arguments()
	if args == nil {
		return ""
	}
	value, _ := args[key].(string)
	return value
}

// RawArguments returns the first tool call's undecoded arguments payload.
func (r *ToolRequest) RawArguments() json.RawMessage {
	if r == nil || r.Message == nil {
		return nil
	}
	for _, tc := range r.Message.ToolCalls {
		if tc.Function != nil && len(tc.Function.Arguments) > 0 {
			return tc.Function.Arguments
		}
	}
	return nil
}

func (r *ToolRequest) arguments() map[string]any {
	if r.Message == nil {
		return nil
	}
	for _, tc := range r.Message.ToolCalls {
		if tc.Function == nil || len(tc.Function.Arguments) == 0 {
			continue
		}
		if args := decodeArguments(tc.Function.Arguments); args != nil {
			return args
		}
	}
	return nil
}

// decodeArguments best-effort parses an arguments payload that may be an
// object or a JSON-encoded string containing an object.
func decodeArguments(raw json.RawMessage) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &obj); err != nil {
		return nil
	}
	return obj
}
