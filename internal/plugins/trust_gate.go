package plugins

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/vellum-ai/vellum/pkg/models"
)

// ErrHashMismatch is returned when a plugin's computed content hash does
// not match the hash it was trusted under.
var ErrHashMismatch = errors.New("plugin content hash mismatch")

// ErrNotTrusted is returned when a plugin has no trust record, or its trust
// level is none.
var ErrNotTrusted = errors.New("plugin is not trusted")

// ErrCapabilityDenied is returned when a trusted plugin invokes an
// operation requiring a capability it was not granted.
var ErrCapabilityDenied = errors.New("capability not granted")

// TrustGate verifies a plugin's content hash and capability grants before
// its tool handlers are registered or invoked. Every mutation
// (trustPlugin/revokeTrust) is atomic with respect to concurrent readers.
type TrustGate struct {
	mu      sync.RWMutex
	records map[string]models.TrustedPluginRecord
}

// NewTrustGate creates an empty trust gate.
func NewTrustGate() *TrustGate {
	return &TrustGate{records: make(map[string]models.TrustedPluginRecord)}
}

// HashContent computes the hex-encoded SHA-256 hash of plugin bytes, the
// same format trusted records and marketplace artifacts store.
func HashContent(pluginBytes []byte) string {
	sum := sha256.Sum256(pluginBytes)
	return hex.EncodeToString(sum[:])
}

// deriveTrustLevel implements spec.md's trust-level derivation: empty
// capabilities grant none, any capability grants limited. Full requires an
// explicit upgrade via Upgrade and is never assigned by TrustPlugin itself.
func deriveTrustLevel(capabilities []models.Capability) models.TrustLevel {
	if len(capabilities) == 0 {
		return models.TrustNone
	}
	return models.TrustLimited
}

// TrustPlugin records (or overwrites) the trust grant for name. Re-trusting
// an already-trusted plugin with a new hash updates the hash, capability
// set, and timestamp atomically; it does not preserve a prior Full upgrade,
// since the content behind the hash has changed.
func (g *TrustGate) TrustPlugin(name string, capabilities []models.Capability, contentHash string) models.TrustedPluginRecord {
	rec := models.TrustedPluginRecord{
		PluginName:   name,
		TrustedAt:    time.Now(),
		Capabilities: append([]models.Capability(nil), capabilities...),
		ContentHash:  contentHash,
		TrustLevel:   deriveTrustLevel(capabilities),
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[name] = rec
	return rec
}

// Upgrade promotes an already-limited-trust plugin to full trust. It is a
// no-op error if the plugin has no record or its trust level is none.
func (g *TrustGate) Upgrade(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[name]
	if !ok || rec.TrustLevel == models.TrustNone {
		return ErrNotTrusted
	}
	rec.TrustLevel = models.TrustFull
	g.records[name] = rec
	return nil
}

// RevokeTrust deletes the trust record for name. Subsequent capability
// checks for name deny.
func (g *TrustGate) RevokeTrust(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.records, name)
}

// Record returns the current trust record for name, if any.
func (g *TrustGate) Record(name string) (models.TrustedPluginRecord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[name]
	return rec, ok
}

// Authorize verifies, in order: (1) SHA-256(pluginBytes) matches the
// record's stored content hash via a constant-time, case-sensitive
// comparison, (2) the plugin's trust level is not none, (3) the record
// grants cap. Any failure rejects the operation.
func (g *TrustGate) Authorize(name string, pluginBytes []byte, cap models.Capability) error {
	g.mu.RLock()
	rec, ok := g.records[name]
	g.mu.RUnlock()

	if !ok || rec.TrustLevel == models.TrustNone {
		return ErrNotTrusted
	}

	computed := HashContent(pluginBytes)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(rec.ContentHash)) != 1 {
		return ErrHashMismatch
	}

	if !rec.HasCapability(cap) {
		return ErrCapabilityDenied
	}

	return nil
}
