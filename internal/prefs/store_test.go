package prefs

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetAndGet(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set(KeyThemePreference, "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get(KeyThemePreference)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "dark" {
		t.Errorf("got %q, want dark", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Get("never-written"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted key should be absent, got %v", err)
	}
	// Deleting again is not an error.
	if err := s.Delete("k"); err != nil {
		t.Errorf("repeat delete: %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := Session{UserID: "u1", Email: "a@b.com", Name: "Ada", Token: "tok"}
	if err := s.SaveSession(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	if err := s.ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.LoadSession(); !errors.Is(err, ErrNotFound) {
		t.Errorf("cleared session should be absent, got %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(KeyThemePreference, "light"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(KeyThemePreference)
	if err != nil || got != "light" {
		t.Errorf("got %q (%v), want light", got, err)
	}
}
