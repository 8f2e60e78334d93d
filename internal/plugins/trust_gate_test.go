package plugins

import (
	"testing"

	"github.com/vellum-ai/vellum/pkg/models"
)

func TestTrustPluginDerivesLevel(t *testing.T) {
	g := NewTrustGate()

	rec := g.TrustPlugin("empty-plugin", nil, HashContent([]byte("a")))
	if rec.TrustLevel != models.TrustNone {
		t.Errorf("expected none for empty capabilities, got %q", rec.TrustLevel)
	}

	rec = g.TrustPlugin("limited-plugin", []models.Capability{models.CapNetworkAccess}, HashContent([]byte("b")))
	if rec.TrustLevel != models.TrustLimited {
		t.Errorf("expected limited, got %q", rec.TrustLevel)
	}
}

func TestUpgradeRequiresExistingLimitedTrust(t *testing.T) {
	g := NewTrustGate()
	if err := g.Upgrade("missing"); err != ErrNotTrusted {
		t.Fatalf("expected ErrNotTrusted, got %v", err)
	}

	g.TrustPlugin("p", []models.Capability{models.CapExecuteHooks}, HashContent([]byte("x")))
	if err := g.Upgrade("p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ := g.Record("p")
	if rec.TrustLevel != models.TrustFull {
		t.Errorf("expected full after upgrade, got %q", rec.TrustLevel)
	}
}

func TestAuthorizeChecksHashTrustAndCapability(t *testing.T) {
	g := NewTrustGate()
	bytes := []byte("plugin binary contents")
	g.TrustPlugin("p", []models.Capability{models.CapNetworkAccess}, HashContent(bytes))

	if err := g.Authorize("p", bytes, models.CapNetworkAccess); err != nil {
		t.Fatalf("expected authorization to succeed, got %v", err)
	}

	if err := g.Authorize("p", []byte("tampered"), models.CapNetworkAccess); err != ErrHashMismatch {
		t.Errorf("expected ErrHashMismatch, got %v", err)
	}

	if err := g.Authorize("p", bytes, models.CapSpawnSubagent); err != ErrCapabilityDenied {
		t.Errorf("expected ErrCapabilityDenied, got %v", err)
	}

	if err := g.Authorize("unknown", bytes, models.CapNetworkAccess); err != ErrNotTrusted {
		t.Errorf("expected ErrNotTrusted, got %v", err)
	}
}

func TestRevokeTrustDeniesSubsequentChecks(t *testing.T) {
	g := NewTrustGate()
	bytes := []byte("contents")
	g.TrustPlugin("p", []models.Capability{models.CapNetworkAccess}, HashContent(bytes))
	g.RevokeTrust("p")

	if err := g.Authorize("p", bytes, models.CapNetworkAccess); err != ErrNotTrusted {
		t.Errorf("expected ErrNotTrusted after revoke, got %v", err)
	}
}

func TestRetrustUpdatesHashAtomically(t *testing.T) {
	g := NewTrustGate()
	g.TrustPlugin("p", []models.Capability{models.CapNetworkAccess}, HashContent([]byte("v1")))
	g.Upgrade("p")

	g.TrustPlugin("p", []models.Capability{models.CapNetworkAccess}, HashContent([]byte("v2")))
	rec, _ := g.Record("p")
	if rec.TrustLevel != models.TrustLimited {
		t.Errorf("expected re-trust to reset to limited (not preserve full), got %q", rec.TrustLevel)
	}
	if err := g.Authorize("p", []byte("v1"), models.CapNetworkAccess); err != ErrHashMismatch {
		t.Errorf("expected old content to now mismatch, got %v", err)
	}
	if err := g.Authorize("p", []byte("v2"), models.CapNetworkAccess); err != nil {
		t.Errorf("expected new content to authorize, got %v", err)
	}
}
