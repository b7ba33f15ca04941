// ABOUTME: Tests for the YAML session file.
// ABOUTME: Covers missing files, round trips, permissions, and removal.
package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionFileLoadMissing(t *testing.T) {
	sf := NewSessionFile(filepath.Join(t.TempDir(), "nested"))

	sd, err := sf.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sd != (SessionData{}) {
		t.Errorf("expected zero session, got %+v", sd)
	}
}

func TestSessionFileSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "adboard")
	sf := NewSessionFile(dir)

	want := SessionData{Token: "tok", UserName: "alice", Role: "Admin"}
	if err := sf.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := sf.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	info, err := os.Stat(sf.Path())
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %o", perm)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only session.yaml in %s, found %d entries", dir, len(entries))
	}
}

func TestSessionFileLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	sf := NewSessionFile(dir)
	if err := os.WriteFile(sf.Path(), []byte("token: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := sf.Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestSessionFileRemove(t *testing.T) {
	sf := NewSessionFile(t.TempDir())

	if err := sf.Remove(); err != nil {
		t.Errorf("Remove on missing file should succeed: %v", err)
	}
	if err := sf.Save(SessionData{Token: "tok"}); err != nil {
		t.Fatal(err)
	}
	if err := sf.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(sf.Path()); !os.IsNotExist(err) {
		t.Errorf("expected session file gone, stat err = %v", err)
	}
}
