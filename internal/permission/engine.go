// Package permission computes a risk level for each tool call and gates
// execution against the current trust mode, per the permission engine
// responsibility: decide which tool calls require approval.
package permission

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vellum-ai/vellum/pkg/models"
)

// RiskLevel is the coarse severity assigned to a tool call before it is
// checked against a trust mode.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// rank orders risk levels for escalation comparisons.
var rank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

func escalate(r RiskLevel, steps int) RiskLevel {
	n := rank[r] + steps
	if n > rank[RiskCritical] {
		n = rank[RiskCritical]
	}
	for level, v := range rank {
		if v == n {
			return level
		}
	}
	return r
}

// TrustMode is the operator-selected posture the engine evaluates risk
// levels against.
type TrustMode string

const (
	// TrustAsk prompts on every tool call regardless of risk.
	TrustAsk TrustMode = "ask"
	// TrustAuto prompts only on high/critical risk; auto-approves low/medium.
	TrustAuto TrustMode = "auto"
	// TrustFull auto-approves everything except critical risk.
	TrustFull TrustMode = "full"
)

// Decision is the engine's verdict for a tool call.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionAsk   Decision = "ask"
	DecisionDeny  Decision = "deny"
)

// baseRisk declares the inherent risk of a tool before argument inspection.
// Tools absent from this table default to medium, mirroring the teacher's
// approval checker falling back to a hardcoded medium default for unknown
// tools (internal/edge/tool_adapter.go).
var baseRisk = map[string]RiskLevel{
	"read":          RiskLow,
	"status":        RiskLow,
	"websearch":     RiskLow,
	"web_search":    RiskLow,
	"webfetch":      RiskLow,
	"web_fetch":     RiskLow,
	"memory_search": RiskLow,
	"job_status":    RiskLow,
	"write":         RiskMedium,
	"edit":          RiskMedium,
	"apply_patch":   RiskMedium,
	"send_message":  RiskMedium,
	"browser":       RiskMedium,
	"exec":          RiskHigh,
	"sandbox":       RiskHigh,
	"execute_code":  RiskHigh,
}

// pathArgKeys are the input fields inspected for filesystem paths. Tools
// take whatever argument shape their schema declares; this list covers the
// conventional names used across the teacher's built-in tool set.
var pathArgKeys = []string{"path", "file", "filepath", "file_path", "directory", "dir"}

// ComputeRisk derives the risk level for a tool call: its declared base
// risk, escalated one level when argument inspection finds a write path
// that resolves outside workspaceRoot.
func ComputeRisk(toolName string, input json.RawMessage, workspaceRoot string) RiskLevel {
	base, ok := baseRisk[strings.ToLower(strings.TrimSpace(toolName))]
	if !ok {
		base = RiskMedium
	}

	if workspaceRoot == "" || len(input) == 0 {
		return base
	}

	var fields map[string]any
	if err := json.Unmarshal(input, &fields); err != nil {
		return base
	}

	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return base
	}

	for _, key := range pathArgKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		p, ok := raw.(string)
		if !ok || p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		resolved := filepath.Clean(p)
		if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return escalate(base, 1)
		}
	}

	return base
}

// alwaysAllowKey identifies an always-allow grant scoped to a session.
type alwaysAllowKey struct {
	toolName string
	risk     RiskLevel
}

// Engine evaluates tool calls against a trust mode, tracking per-session
// "always allow" grants recorded at (toolName, riskLevel) granularity.
type Engine struct {
	mu            sync.RWMutex
	mode          TrustMode
	workspaceRoot string
	alwaysAllow   map[string]map[alwaysAllowKey]struct{} // sessionID -> grants
}

// NewEngine creates a permission engine with the given trust mode and
// workspace root used for path-escalation inspection.
func NewEngine(mode TrustMode, workspaceRoot string) *Engine {
	if mode == "" {
		mode = TrustAsk
	}
	return &Engine{
		mode:          mode,
		workspaceRoot: workspaceRoot,
		alwaysAllow:   make(map[string]map[alwaysAllowKey]struct{}),
	}
}

// SetMode updates the trust mode evaluated by subsequent Decide calls.
func (e *Engine) SetMode(mode TrustMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// Mode returns the current trust mode.
func (e *Engine) Mode() TrustMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Decide computes the risk level for tc and returns the engine's verdict
// under the current trust mode, honoring any "always allow" grant recorded
// for this session at the resulting risk level.
func (e *Engine) Decide(sessionID string, tc models.ToolCall) (Decision, RiskLevel) {
	e.mu.RLock()
	mode := e.mode
	root := e.workspaceRoot
	e.mu.RUnlock()

	risk := ComputeRisk(tc.Name, tc.Input, root)

	if e.isAlwaysAllowed(sessionID, tc.Name, risk) {
		return DecisionAllow, risk
	}

	switch mode {
	case TrustFull:
		if risk == RiskCritical {
			return DecisionAsk, risk
		}
		return DecisionAllow, risk
	case TrustAuto:
		if risk == RiskHigh || risk == RiskCritical {
			return DecisionAsk, risk
		}
		return DecisionAllow, risk
	default: // TrustAsk
		return DecisionAsk, risk
	}
}

// RecordAlwaysAllow scopes an "always allow" decision to sessionID for the
// given (toolName, riskLevel) pair, per spec: recorded per (toolName,
// riskLevel), not per tool call.
func (e *Engine) RecordAlwaysAllow(sessionID, toolName string, risk RiskLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	grants, ok := e.alwaysAllow[sessionID]
	if !ok {
		grants = make(map[alwaysAllowKey]struct{})
		e.alwaysAllow[sessionID] = grants
	}
	grants[alwaysAllowKey{toolName: strings.ToLower(toolName), risk: risk}] = struct{}{}
}

// ClearSession drops all always-allow grants for sessionID, e.g. on session
// close.
func (e *Engine) ClearSession(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.alwaysAllow, sessionID)
}

func (e *Engine) isAlwaysAllowed(sessionID, toolName string, risk RiskLevel) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	grants, ok := e.alwaysAllow[sessionID]
	if !ok {
		return false
	}
	_, ok = grants[alwaysAllowKey{toolName: strings.ToLower(toolName), risk: risk}]
	return ok
}
