package models

// StreamEventType is the tag of a StreamEvent, the normalized vocabulary
// every provider adapter translates its wire format into.
type StreamEventType string

const (
	StreamText          StreamEventType = "text"
	StreamReasoning     StreamEventType = "reasoning"
	StreamToolCallStart StreamEventType = "tool_call_start"
	StreamToolCallDelta StreamEventType = "tool_call_delta"
	StreamToolCallEnd   StreamEventType = "tool_call_end"
	StreamUsage         StreamEventType = "usage"
	StreamEnd           StreamEventType = "end"
)

// Usage is flattened token accounting; provider-specific fields are dropped
// during normalization.
type Usage struct {
	InputTokens      int  `json:"input_tokens"`
	OutputTokens     int  `json:"output_tokens"`
	CacheReadTokens  *int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens *int `json:"cache_write_tokens,omitempty"`
}

// StreamEvent is a single normalized chunk of a provider's response stream.
//
// Ordering invariants (spec.md 3): for a given tool-call Index, a
// tool_call_start precedes any tool_call_delta, which precedes
// tool_call_end. usage and end appear at most once per response and arrive
// last.
type StreamEvent struct {
	Type  StreamEventType `json:"type"`
	Index int             `json:"index,omitempty"`

	// text / reasoning
	Content string `json:"content,omitempty"`

	// tool_call_start / tool_call_delta / tool_call_end
	ToolCallID        string `json:"tool_call_id,omitempty"`
	ToolName          string `json:"tool_name,omitempty"`
	ArgumentsFragment string `json:"arguments_fragment,omitempty"`

	// usage
	Usage *Usage `json:"usage,omitempty"`

	// end
	StopReason StopReason `json:"stop_reason,omitempty"`
}
