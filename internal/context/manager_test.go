package context

import (
	"context"
	"strings"
	"testing"

	"github.com/vellum-ai/vellum/pkg/models"
)

func TestThresholdProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile ThresholdProfile
		wantErr bool
	}{
		{"balanced is valid", BalancedProfile, false},
		{"conservative is valid", ConservativeProfile, false},
		{"aggressive is valid", AggressiveProfile, false},
		{"warning out of range", ThresholdProfile{Warning: 1.1, Critical: 0.85, Overflow: 0.95}, true},
		{"not strictly ordered", ThresholdProfile{Warning: 0.85, Critical: 0.80, Overflow: 0.95}, true},
		{"zero values", ThresholdProfile{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestThresholdTableResolve(t *testing.T) {
	table := NewThresholdTable()

	if got := table.Resolve("claude-3-opus-20240229"); got != ConservativeProfile {
		t.Fatalf("opus resolved to %+v, want conservative", got)
	}
	if got := table.Resolve("deepseek-chat"); got != AggressiveProfile {
		t.Fatalf("deepseek resolved to %+v, want aggressive", got)
	}
	if got := table.Resolve("gpt-4o"); got != BalancedProfile {
		t.Fatalf("unmatched model resolved to %+v, want balanced default", got)
	}

	if err := table.RegisterPattern("gpt-4o*", ConservativeProfile); err != nil {
		t.Fatalf("RegisterPattern: %v", err)
	}
	if got := table.Resolve("gpt-4o-mini"); got != ConservativeProfile {
		t.Fatalf("custom pattern resolved to %+v, want conservative", got)
	}

	if err := table.RegisterPattern("gpt-4o*", AggressiveProfile); err != nil {
		t.Fatalf("RegisterPattern: %v", err)
	}
	if got := table.Resolve("gpt-4o-mini"); got != AggressiveProfile {
		t.Fatalf("newest custom pattern should win, got %+v", got)
	}

	if err := table.RegisterPattern("bad*", ThresholdProfile{Warning: 2}); err == nil {
		t.Fatal("expected RegisterPattern to reject an invalid profile")
	}
}

type fakeSummarizer struct {
	content string
	err     error
	calls   [][]*models.Message
}

func (f *fakeSummarizer) Summarize(_ context.Context, messages []*models.Message) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func TestManagerCompactProducesForestLinks(t *testing.T) {
	summarizer := &fakeSummarizer{content: "summary of older turns"}
	mgr := NewManager(summarizer, NewThresholdTable())

	messages := make([]*models.Message, 0, 20)
	for i := 0; i < 18; i++ {
		messages = append(messages, &models.Message{ID: "m" + string(rune('a'+i)), Role: models.RoleUser, Content: strings.Repeat("x", 400)})
	}

	result, err := mgr.Compact(context.Background(), "sess-1", messages, 2000, "gpt-4o")
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if result == nil {
		t.Fatal("expected a compaction result, got nil")
	}
	if result.Summary.CondenseID == "" {
		t.Fatal("expected summary to carry a fresh CondenseID")
	}
	if len(result.AbsorbedIDs) == 0 {
		t.Fatal("expected at least one absorbed message id")
	}
	if len(summarizer.calls) != 1 {
		t.Fatalf("expected exactly one Summarize call, got %d", len(summarizer.calls))
	}
}

func TestManagerCompactNoopWhenHealthy(t *testing.T) {
	summarizer := &fakeSummarizer{content: "unused"}
	mgr := NewManager(summarizer, NewThresholdTable())

	messages := []*models.Message{
		{ID: "m1", Role: models.RoleUser, Content: "hello"},
		{ID: "m2", Role: models.RoleAssistant, Content: "hi there"},
	}

	result, err := mgr.Compact(context.Background(), "sess-1", messages, 1_000_000, "gpt-4o")
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no compaction for a healthy window, got %+v", result)
	}
}

func TestManagerFilterForAPIDropsAbsorbedOriginals(t *testing.T) {
	mgr := NewManager(&fakeSummarizer{}, NewThresholdTable())

	summary := &models.Message{ID: "sum-1", Role: models.RoleSystem, CondenseID: "condense-1"}
	absorbed := &models.Message{ID: "orig-1", Role: models.RoleUser, CondenseParent: "condense-1"}
	kept := &models.Message{ID: "recent-1", Role: models.RoleUser, Content: "still here"}

	filtered := mgr.FilterForAPI([]*models.Message{absorbed, summary, kept})

	ids := map[string]bool{}
	for _, m := range filtered {
		ids[m.ID] = true
	}
	if ids["orig-1"] {
		t.Fatal("absorbed original should be filtered out when its summary is present")
	}
	if !ids["sum-1"] || !ids["recent-1"] {
		t.Fatal("summary and unaffected message should both be kept")
	}
}

func TestManagerFilterForAPIKeepsOrphanedAbsorbedMessage(t *testing.T) {
	mgr := NewManager(&fakeSummarizer{}, NewThresholdTable())

	// CondenseParent references a summary that is not in the current list
	// (e.g. it was pruned from the active window) — the original must
	// still be considered part of effective history.
	orphan := &models.Message{ID: "orig-2", Role: models.RoleUser, CondenseParent: "condense-missing"}

	filtered := mgr.FilterForAPI([]*models.Message{orphan})
	if len(filtered) != 1 {
		t.Fatalf("expected orphaned absorbed message to be kept, got %d messages", len(filtered))
	}
}

func TestManagerFilterForAPIRespectsIncludeSummariesFlag(t *testing.T) {
	mgr := NewManager(&fakeSummarizer{}, NewThresholdTable())
	mgr.SetIncludeSummaries(false)

	summary := &models.Message{ID: "sum-1", Role: models.RoleSystem, CondenseID: "condense-1"}
	filtered := mgr.FilterForAPI([]*models.Message{summary})
	if len(filtered) != 0 {
		t.Fatal("expected summary to be excluded when includeSummaries is false")
	}
}

func TestManagerFilterForAPIChainsThroughRepeatedCompaction(t *testing.T) {
	mgr := NewManager(&fakeSummarizer{}, NewThresholdTable())

	oldSummary := &models.Message{ID: "sum-1", Role: models.RoleSystem, CondenseID: "condense-1", CondenseParent: "condense-2"}
	newSummary := &models.Message{ID: "sum-2", Role: models.RoleSystem, CondenseID: "condense-2"}

	filtered := mgr.FilterForAPI([]*models.Message{oldSummary, newSummary})
	if len(filtered) != 1 || filtered[0].ID != "sum-2" {
		t.Fatalf("expected only the newest summary layer to survive, got %+v", filtered)
	}
}
