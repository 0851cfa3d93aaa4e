// Package bridge connects one realtime speech session to the tool
// dispatcher: it watches the event stream for function calls, forwards them
// for execution and feeds the results back into the conversation.
package bridge

import (
	"encoding/json"
	"strings"
)

// Event is one inbound message from the realtime transport. Function-call
// fields appear at varying nesting depths depending on Type; FunctionCalls
// flattens all known shapes.
type Event struct {
	Type      string          `json:"type"`
	EventID   string          `json:"event_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Item      *OutputItem     `json:"item,omitempty"`
	Response  *ResponseBody   `json:"response,omitempty"`
	Error     *EventError     `json:"error,omitempty"`
}

// OutputItem is one generated item inside a response.
type OutputItem struct {
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ResponseBody carries the completed output items of a response.done event.
type ResponseBody struct {
	Output []OutputItem `json:"output,omitempty"`
}

// EventError is the transport's own error report.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// FunctionCall is one extracted tool invocation request.
type FunctionCall struct {
	Name      string
	CallID    string
	Arguments map[string]any
}

const (
	eventSessionCreated  = "session.created"
	eventArgumentsDone   = "response.function_call_arguments.done"
	eventOutputItemDone  = "response.output_item.done"
	eventResponseDone    = "response.done"
	eventError           = "error"
	itemTypeFunctionCall = "function_call"
)

// FunctionCalls extracts every tool invocation the event carries. The same
// logical call may arrive through more than one event shape; callers must
// deduplicate by CallID.
func (e *Event) FunctionCalls() []FunctionCall {
	switch e.Type {
	case eventArgumentsDone:
		if e.CallID == "" || e.Name == "" {
			return nil
		}
		return []FunctionCall{{
			Name:      e.Name,
			CallID:    e.CallID,
			Arguments: parseArguments(e.Arguments),
		}}
	case eventOutputItemDone:
		if e.Item == nil || e.Item.Type != itemTypeFunctionCall {
			return nil
		}
		return []FunctionCall{{
			Name:      e.Item.Name,
			CallID:    e.Item.CallID,
			Arguments: parseArguments(e.Item.Arguments),
		}}
	case eventResponseDone:
		if e.Response == nil {
			return nil
		}
		var calls []FunctionCall
		for _, item := range e.Response.Output {
			if item.Type != itemTypeFunctionCall {
				continue
			}
			calls = append(calls, FunctionCall{
				Name:      item.Name,
				CallID:    item.CallID,
				Arguments: parseArguments(item.Arguments),
			})
		}
		return calls
	}

	return nil
}

// parseArguments accepts both encodings the transport produces: a JSON
// object, or a JSON string containing an encoded object. Unparseable input
// yields an empty map so validation can report the missing parameters.
func parseArguments(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "\"") {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return map[string]any{}
		}
		trimmed = encoded
	}

	args := map[string]any{}
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return map[string]any{}
	}
	return args
}
