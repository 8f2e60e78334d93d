package context

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vellum-ai/vellum/pkg/models"
)

// ThresholdProfile declares the usage ratios at which a session's context
// level steps from healthy to warning to critical to overflow. Each field
// must lie in (0,1) and the three must be strictly increasing.
type ThresholdProfile struct {
	Warning  float64
	Critical float64
	Overflow float64
}

// Validate checks the invariant spec.md §3 requires of every threshold set.
func (p ThresholdProfile) Validate() error {
	for name, v := range map[string]float64{"warning": p.Warning, "critical": p.Critical, "overflow": p.Overflow} {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("context: %s threshold %.2f must lie in (0,1)", name, v)
		}
	}
	if !(p.Warning < p.Critical && p.Critical < p.Overflow) {
		return fmt.Errorf("context: thresholds must satisfy warning<critical<overflow, got %.2f/%.2f/%.2f", p.Warning, p.Critical, p.Overflow)
	}
	return nil
}

// Named profiles selectable per session or per pattern-table entry.
var (
	ConservativeProfile = ThresholdProfile{Warning: 0.70, Critical: 0.80, Overflow: 0.90}
	BalancedProfile      = ThresholdProfile{Warning: 0.75, Critical: 0.85, Overflow: 0.95}
	AggressiveProfile    = ThresholdProfile{Warning: 0.85, Critical: 0.92, Overflow: 0.97}
)

type patternThreshold struct {
	pattern string
	profile ThresholdProfile
}

// builtinPatterns is the default model-id glob table. Order only matters
// among patterns that both match; the first match wins.
var builtinPatterns = []patternThreshold{
	{"claude-3-opus*", ConservativeProfile},
	{"claude-*", BalancedProfile},
	{"deepseek*", AggressiveProfile},
	{"gemini*", AggressiveProfile},
}

// ThresholdTable resolves a model id to a ThresholdProfile via a glob
// pattern table. Patterns registered at runtime take precedence over the
// built-in table, newest registration first.
type ThresholdTable struct {
	custom []patternThreshold
}

// NewThresholdTable returns a table with no custom patterns registered.
func NewThresholdTable() *ThresholdTable {
	return &ThresholdTable{}
}

// RegisterPattern adds a custom glob pattern, superseding any built-in or
// previously-registered custom pattern that also matches a given model id.
func (t *ThresholdTable) RegisterPattern(pattern string, profile ThresholdProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	t.custom = append([]patternThreshold{{pattern, profile}}, t.custom...)
	return nil
}

// Resolve returns the profile for modelID, defaulting to BalancedProfile
// when no pattern — custom or built-in — matches.
func (t *ThresholdTable) Resolve(modelID string) ThresholdProfile {
	for _, p := range t.custom {
		if globMatch(p.pattern, modelID) {
			return p.profile
		}
	}
	for _, p := range builtinPatterns {
		if globMatch(p.pattern, modelID) {
			return p.profile
		}
	}
	return BalancedProfile
}

func globMatch(pattern, value string) bool {
	if pattern == "*" || pattern == value {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	parts := strings.Split(pattern, "*")
	idx := 0
	if parts[0] != "" {
		if !strings.HasPrefix(value, parts[0]) {
			return false
		}
		idx = len(parts[0])
	}
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		pos := strings.Index(value[idx:], parts[i])
		if pos < 0 {
			return false
		}
		idx += pos + len(parts[i])
	}
	last := parts[len(parts)-1]
	return last == "" || strings.HasSuffix(value, last)
}

// State computes the current token-budget snapshot for a message list
// against a resolved threshold profile.
func State(messages []*models.Message, windowTokens int, table *ThresholdTable, modelID string) *models.ContextState {
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			texts = append(texts, m.Content)
		}
	}
	estimated := EstimateTokensForMessages(texts)

	var ratio float64
	if windowTokens > 0 {
		ratio = float64(estimated) / float64(windowTokens)
	}

	profile := table.Resolve(modelID)
	level := models.ContextHealthy
	switch {
	case ratio >= profile.Overflow:
		level = models.ContextOverflow
	case ratio >= profile.Critical:
		level = models.ContextCritical
	case ratio >= profile.Warning:
		level = models.ContextWarning
	}

	return &models.ContextState{
		EstimatedTokens: estimated,
		WindowTokens:    windowTokens,
		UsedRatio:       ratio,
		Level:           level,
	}
}

// Summarizer produces a natural-language summary of a run of messages.
// Implementations typically issue a dedicated provider request whose
// system prompt asks for goals, constraints, established facts, open
// decisions, and pending next actions to be preserved.
type Summarizer interface {
	Summarize(ctx context.Context, messages []*models.Message) (string, error)
}

// Manager implements the context manager described in spec.md §4.5: it
// tracks estimated usage against a resolved threshold profile and, when
// asked to compact, replaces a contiguous prefix of older messages with a
// single summary message, threading the condenseId/condenseParent forest
// so the replaced originals remain in storage for rollback.
type Manager struct {
	summarizer       Summarizer
	thresholds       *ThresholdTable
	includeSummaries bool
}

// NewManager constructs a Manager. includeSummaries controls the default
// behavior of FilterForAPI — spec.md §4.5 defaults this to true.
func NewManager(summarizer Summarizer, thresholds *ThresholdTable) *Manager {
	if thresholds == nil {
		thresholds = NewThresholdTable()
	}
	return &Manager{
		summarizer:       summarizer,
		thresholds:       thresholds,
		includeSummaries: true,
	}
}

// SetIncludeSummaries overrides whether FilterForAPI includes summary
// messages in the filtered history. Defaults to true.
func (m *Manager) SetIncludeSummaries(include bool) {
	m.includeSummaries = include
}

// NeedsCompaction reports whether usage has crossed the warning threshold
// for modelID.
func (m *Manager) NeedsCompaction(messages []*models.Message, windowTokens int, modelID string) bool {
	state := State(messages, windowTokens, m.thresholds, modelID)
	return state.Level != models.ContextHealthy
}

// CompactionResult describes the outcome of a single compaction pass.
type CompactionResult struct {
	Summary       *models.Message
	AbsorbedIDs   []string
	RemainingUsed float64
}

// Compact selects the oldest N messages such that summarizing them drops
// usage below the warning threshold, issues a summarization request over
// them, and returns a fresh summary message plus the ids of the messages
// it absorbed. Callers are responsible for persisting the summary and
// setting CondenseParent on the absorbed originals (steps 3-4 of spec.md
// §4.5's compaction protocol) — Manager never mutates caller-owned slices.
func (m *Manager) Compact(ctx context.Context, sessionID string, messages []*models.Message, windowTokens int, modelID string) (*CompactionResult, error) {
	if m.summarizer == nil {
		return nil, fmt.Errorf("context: no summarizer configured")
	}
	if !m.NeedsCompaction(messages, windowTokens, modelID) {
		return nil, nil
	}
	profile := m.thresholds.Resolve(modelID)

	n, ok := selectAbsorptionCount(messages, windowTokens, profile.Warning)
	if !ok || n == 0 {
		return nil, nil
	}
	toAbsorb := messages[:n]

	content, err := m.summarizer.Summarize(ctx, toAbsorb)
	if err != nil {
		return nil, fmt.Errorf("context: summarize: %w", err)
	}

	condenseID := uuid.NewString()
	summary := &models.Message{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Role:       models.RoleSystem,
		Content:    content,
		CondenseID: condenseID,
		CreatedAt:  time.Now(),
	}

	absorbedIDs := make([]string, 0, len(toAbsorb))
	for _, msg := range toAbsorb {
		if msg != nil {
			absorbedIDs = append(absorbedIDs, msg.ID)
		}
	}

	remaining := make([]*models.Message, 0, len(messages)-n+1)
	remaining = append(remaining, summary)
	remaining = append(remaining, messages[n:]...)
	remainingState := State(remaining, windowTokens, m.thresholds, modelID)

	return &CompactionResult{
		Summary:       summary,
		AbsorbedIDs:   absorbedIDs,
		RemainingUsed: remainingState.UsedRatio,
	}, nil
}

// selectAbsorptionCount finds the smallest prefix length N such that
// summarizing messages[:N] would drop the remaining usage ratio below
// warningRatio. Returns ok=false if no prefix suffices (e.g. a single
// huge trailing message already exceeds the threshold on its own).
func selectAbsorptionCount(messages []*models.Message, windowTokens int, warningRatio float64) (int, bool) {
	if windowTokens <= 0 || len(messages) == 0 {
		return 0, false
	}
	for n := 1; n <= len(messages); n++ {
		remaining := messages[n:]
		texts := make([]string, 0, len(remaining)+1)
		texts = append(texts, "") // placeholder for the summary message itself
		for _, m := range remaining {
			if m != nil {
				texts = append(texts, m.Content)
			}
		}
		estimated := EstimateTokensForMessages(texts)
		if float64(estimated)/float64(windowTokens) < warningRatio {
			return n, true
		}
	}
	return 0, false
}

// FilterForAPI implements spec.md §4.5's API-history filtering rule: a
// message is included iff it is not a summary-absorbed original (no
// CondenseParent, or its referenced summary is absent from the list), and,
// if it is itself a summary, the caller opted into summaries. Applying
// this uniformly per message also handles chained summaries: a summary
// that was itself absorbed by a later summary is filtered out the same
// way, leaving only the newest uncompressed layer.
func (m *Manager) FilterForAPI(messages []*models.Message) []*models.Message {
	present := make(map[string]bool, len(messages))
	for _, msg := range messages {
		if msg != nil && msg.CondenseID != "" {
			present[msg.CondenseID] = true
		}
	}

	filtered := make([]*models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if msg.CondenseParent != "" && present[msg.CondenseParent] {
			continue
		}
		if msg.IsSummary() && !m.includeSummaries {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}
