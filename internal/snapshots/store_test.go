package snapshots

import (
	"testing"
)

func TestTakeIsIdempotentOnUnchangedTree(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	files := map[string][]byte{"main.go": []byte("package main")}

	hash1, err := store.Take("initial", files)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}

	hash2, err := store.Take("no-op", files)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if hash1 != hash2 {
		t.Fatalf("expected idempotent hash, got %q then %q", hash1, hash2)
	}
	if len(store.List()) != 1 {
		t.Fatalf("expected no-op take to not grow the log, got %d entries", len(store.List()))
	}
}

func TestTakeRecordsChangedTree(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	hash1, _ := store.Take("v1", map[string][]byte{"main.go": []byte("v1")})
	hash2, _ := store.Take("v2", map[string][]byte{"main.go": []byte("v2")})

	if hash1 == hash2 {
		t.Fatalf("expected distinct hashes for distinct content")
	}
	if len(store.List()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(store.List()))
	}
}

func TestRestoreReturnsOriginalContent(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	files := map[string][]byte{
		"main.go":    []byte("package main"),
		"helper.go":  []byte("package main\n\nfunc helper() {}"),
	}
	hash, err := store.Take("two files", files)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}

	restored, err := store.Restore(hash)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if string(restored["main.go"]) != "package main" {
		t.Errorf("unexpected main.go content: %q", restored["main.go"])
	}
	if string(restored["helper.go"]) != string(files["helper.go"]) {
		t.Errorf("unexpected helper.go content")
	}

	if _, err := store.Restore("unknown-hash"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDiffReportsAddedRemovedModified(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	hash, _ := store.Take("base", map[string][]byte{
		"keep.go":   []byte("unchanged"),
		"change.go": []byte("old"),
		"remove.go": []byte("gone soon"),
	})

	diff, err := store.Diff(hash, map[string][]byte{
		"keep.go":   []byte("unchanged"),
		"change.go": []byte("new"),
		"add.go":    []byte("brand new"),
	})
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	if len(diff.Added) != 1 || diff.Added[0] != "add.go" {
		t.Errorf("unexpected Added: %v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0] != "remove.go" {
		t.Errorf("unexpected Removed: %v", diff.Removed)
	}
	if len(diff.Modified) != 1 || diff.Modified[0] != "change.go" {
		t.Errorf("unexpected Modified: %v", diff.Modified)
	}
}
