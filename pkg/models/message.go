package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single turn in a session's transcript.
//
// CondenseID and CondenseParent implement the compaction forest described in
// the context manager: a summary message carries a fresh CondenseID, and
// every original message it absorbs carries CondenseParent set to that id.
// The two fields never both appear on the same message.
type Message struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Reasoning      string          `json:"reasoning,omitempty"`
	ToolCalls      []ToolCall      `json:"tool_calls,omitempty"`
	ToolResults    []ToolResult    `json:"tool_results,omitempty"`
	CondenseID     string          `json:"condense_id,omitempty"`
	CondenseParent string          `json:"condense_parent,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsSummary reports whether this message is itself a compaction summary.
func (m Message) IsSummary() bool { return m.CondenseID != "" }

// IsAbsorbed reports whether this message has been folded into a summary.
func (m Message) IsAbsorbed() bool { return m.CondenseParent != "" }

// ToolCall represents an LLM's request to execute a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult represents the output of a tool execution appended to a
// tool-role message.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ExecutionState is the lifecycle of a ToolExecution. Transitions are
// monotonic: pending -> approved|rejected, approved -> running,
// running -> complete|error. rejected, complete, and error are terminal.
type ExecutionState string

const (
	ExecStatePending  ExecutionState = "pending"
	ExecStateApproved ExecutionState = "approved"
	ExecStateRejected ExecutionState = "rejected"
	ExecStateRunning  ExecutionState = "running"
	ExecStateComplete ExecutionState = "complete"
	ExecStateError    ExecutionState = "error"
)

// CanTransition reports whether moving from s to next is a legal state
// transition per the execution state machine.
func (s ExecutionState) CanTransition(next ExecutionState) bool {
	switch s {
	case ExecStatePending:
		return next == ExecStateApproved || next == ExecStateRejected
	case ExecStateApproved:
		return next == ExecStateRunning
	case ExecStateRunning:
		return next == ExecStateComplete || next == ExecStateError
	default:
		return false
	}
}

// Terminal reports whether s is a terminal state.
func (s ExecutionState) Terminal() bool {
	return s == ExecStateRejected || s == ExecStateComplete || s == ExecStateError
}

// ToolExecution is the runtime shadow of a ToolCall: the call plus its
// lifecycle state, result, and timing.
type ToolExecution struct {
	Call      ToolCall       `json:"call"`
	State     ExecutionState `json:"state"`
	Result    *ExecResult    `json:"result,omitempty"`
	Err       string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at,omitempty"`
	EndedAt   time.Time      `json:"ended_at,omitempty"`
}

// Transition moves the execution to next, returning false if the move is
// illegal per ExecutionState.CanTransition.
func (e *ToolExecution) Transition(next ExecutionState) bool {
	if !e.State.CanTransition(next) {
		return false
	}
	e.State = next
	return true
}

// ExecResult is a tool's reported outcome.
type ExecResult struct {
	Success bool   `json:"success"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Checkpoint is a named point in a session's message history that rollback
// can truncate back to.
type Checkpoint struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	MessageIndex int       `json:"message_index"`
	Timestamp    time.Time `json:"timestamp"`
}

// Session is an ordered message list plus metadata, checkpoints, and a
// version counter. The session owns its messages; checkpoints reference
// them by index, never by pointer.
type Session struct {
	ID              string         `json:"id"`
	Provider        string         `json:"provider"`
	Model           string         `json:"model"`
	Messages        []Message      `json:"messages"`
	Checkpoints     []Checkpoint   `json:"checkpoints,omitempty"`
	Version         int64          `json:"version"`
	LastSyncedIndex int            `json:"last_synced_index"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ContextLevel is a discrete classification of how full a session's context
// window is.
type ContextLevel string

const (
	ContextHealthy  ContextLevel = "healthy"
	ContextWarning  ContextLevel = "warning"
	ContextCritical ContextLevel = "critical"
	ContextOverflow ContextLevel = "overflow"
)

// ContextState is the token-budget snapshot derived from a session's
// current message list.
type ContextState struct {
	EstimatedTokens int          `json:"estimated_tokens"`
	WindowTokens    int          `json:"window_tokens"`
	UsedRatio       float64      `json:"used_ratio"`
	Level           ContextLevel `json:"level"`
}

// StopReason is the provider's declared cause for ending a response.
type StopReason string

const (
	StopEndTurn       StopReason = "end_turn"
	StopMaxTokens      StopReason = "max_tokens"
	StopSequence       StopReason = "stop_sequence"
	StopToolUse        StopReason = "tool_use"
	StopContentFilter  StopReason = "content_filter"
)

// TrustLevel is the coarse plugin classification derived from the
// capabilities granted to a plugin.
type TrustLevel string

const (
	TrustNone    TrustLevel = "none"
	TrustLimited TrustLevel = "limited"
	TrustFull    TrustLevel = "full"
)

// Capability is a scoped privilege a trusted plugin may exercise.
type Capability string

const (
	CapExecuteHooks    Capability = "execute-hooks"
	CapSpawnSubagent   Capability = "spawn-subagent"
	CapAccessFilesystem Capability = "access-filesystem"
	CapNetworkAccess   Capability = "network-access"
	CapMCPServers      Capability = "mcp-servers"
)

// TrustedPluginRecord is the persisted trust grant for a third-party plugin.
type TrustedPluginRecord struct {
	PluginName   string       `json:"plugin_name"`
	Version      string       `json:"version"`
	TrustedAt    time.Time    `json:"trusted_at"`
	Capabilities []Capability `json:"capabilities"`
	ContentHash  string       `json:"content_hash"`
	TrustLevel   TrustLevel   `json:"trust_level"`
}

// HasCapability reports whether the record grants cap.
func (r TrustedPluginRecord) HasCapability(cap Capability) bool {
	if r.TrustLevel == TrustNone {
		return false
	}
	for _, c := range r.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// SignalType classifies an evidence signal's origin.
type SignalType string

const (
	SignalErrorToken SignalType = "error_token"
	SignalSymbol     SignalType = "symbol"
	SignalPath       SignalType = "path"
	SignalStackFrame SignalType = "stack_frame"
)

// Signal is a weighted clue extracted from a diagnostic (stack trace, error
// message, failing test) used to rank candidate evidence.
type Signal struct {
	Type       SignalType `json:"type"`
	Value      string     `json:"value"`
	Source     string     `json:"source"`
	Confidence float64    `json:"confidence"`
}

// Evidence is a ranked, token-budgeted chunk of source considered relevant
// to the current task.
type Evidence struct {
	ID             string         `json:"id"`
	Provider       string         `json:"provider"`
	Path           string         `json:"path"`
	Range          [2]int         `json:"range"`
	Content        string         `json:"content"`
	Tokens         int            `json:"tokens"`
	BaseScore      float64        `json:"base_score"`
	FinalScore     *float64       `json:"final_score,omitempty"`
	MatchedSignals []Signal       `json:"matched_signals,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
